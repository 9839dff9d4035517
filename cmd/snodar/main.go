package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/sensorlogic/snodar/internal/adapters/console"
	"github.com/sensorlogic/snodar/internal/adapters/csvsink"
	"github.com/sensorlogic/snodar/internal/adapters/serialport"
	"github.com/sensorlogic/snodar/internal/capture"
	"github.com/sensorlogic/snodar/internal/cliconfig"
	"github.com/sensorlogic/snodar/internal/convert"
	"github.com/sensorlogic/snodar/internal/frame"
	"github.com/sensorlogic/snodar/internal/snolog"
)

const longHelp = `Capture, decode, and log measurement data from a SNOdar snow-depth sensor
over RS-232.

capture triggers measurements on demand and expects a sensor configured in
"manual" mode with RS-232 TX enabled. stream logs the continuous ASCII
telemetry feed of a sensor configured for periodic measurements. convert and
expand-flags work offline on previously captured files.`

var exampleUsage = `  snodar capture /dev/ttyUSB0 output.csv
  snodar capture --measurement-interval 60s --read-delay 15s COM4 output.csv
  snodar stream /dev/ttyUSB0 output.csv
  snodar convert snolog.bin output.csv
  snodar expand-flags output.csv`

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "snodar",
		Short:   "SNOdar RS-232 data capture and snolog decoding",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	}
	root.AddCommand(
		newCaptureCmd(log),
		newStreamCmd(log),
		newConvertCmd(log),
		newExpandFlagsCmd(log),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("snodar")
		os.Exit(1)
	}
}

// loadConfig merges the config file and SNODAR_* environment variables
// under any explicitly set flags, then validates the result.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else {
		cfgFile = ""
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}
	return cfgFile, cfg.Validate()
}

// watchSignals cancels ctx on the first SIGINT/SIGTERM so the loop can
// collect its last packet and flush; a second signal exits immediately.
func watchSignals(cancel context.CancelFunc, log zerolog.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("terminating, waiting to collect last packet (send signal again to exit immediately)")
		cancel()
		<-sigCh
		os.Exit(1)
	}()
}

func newCaptureCmd(log zerolog.Logger) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "capture <serial-port> <csv>",
		Short: "Trigger measurements at a fixed interval and log snolog packets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := loadConfig(cmd, &cfg, cfgPath)
			if err != nil {
				return err
			}
			log.Info().Interface("config", cfg).Str("port", args[0]).Str("csv", args[1]).Msg("configuration")

			port, err := serialport.Open(args[0], cfg.Baud)
			if err != nil {
				return err
			}
			defer port.Close()

			sink, err := csvsink.Create(args[1], snolog.Fields())
			if err != nil {
				return err
			}

			runner := capture.NewRunner(port, sink, console.New(log), log,
				capture.Settings{
					MeasurementInterval: cfg.MeasurementInterval,
					ReadDelay:           cfg.ReadDelay,
					Verbose:             cfg.Verbose,
				},
				cfg.ResponseWindow, cfg.PollInterval, cfg.BufferCap)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			watchSignals(cancel, log)

			if cfgFile != "" {
				go capture.NewConfigWatcher(cfgFile, runner, log).Run(ctx)
			}

			runErr := runner.Run(ctx)
			if cerr := sink.Close(); runErr == nil {
				runErr = cerr
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: ~/.snodar/config.toml)")
	cmd.Flags().IntVar(&cfg.Baud, "baud", cfg.Baud, "serial baud rate")
	cmd.Flags().DurationVar(&cfg.MeasurementInterval, "measurement-interval", cfg.MeasurementInterval, "how often to trigger measurements")
	cmd.Flags().DurationVar(&cfg.ReadDelay, "read-delay", cfg.ReadDelay, "wait after triggering before reading the response")
	cmd.Flags().DurationVar(&cfg.ResponseWindow, "response-window", cfg.ResponseWindow, "how long to poll for a response per trigger")
	cmd.Flags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "pause between serial polls")
	cmd.Flags().IntVar(&cfg.BufferCap, "buffer-cap", cfg.BufferCap, "receive buffer cap in bytes")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log every decoded packet")

	return cmd
}

func newStreamCmd(log zerolog.Logger) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "stream <serial-port> <csv>",
		Short: "Log the continuous ASCII telemetry feed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			log.Info().Interface("config", cfg).Str("port", args[0]).Str("csv", args[1]).Msg("configuration")

			port, err := serialport.Open(args[0], cfg.Baud)
			if err != nil {
				return err
			}
			defer port.Close()

			sink, err := csvsink.Create(args[1], frame.AsciiFieldNames)
			if err != nil {
				return err
			}

			streamer := capture.NewStreamer(port, sink, console.New(log), log,
				cfg.PollInterval, cfg.BufferCap, cfg.Verbose)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			watchSignals(cancel, log)

			runErr := streamer.Run(ctx)
			if cerr := sink.Close(); runErr == nil {
				runErr = cerr
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: ~/.snodar/config.toml)")
	cmd.Flags().IntVar(&cfg.Baud, "baud", cfg.Baud, "serial baud rate")
	cmd.Flags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "pause between serial polls")
	cmd.Flags().IntVar(&cfg.BufferCap, "buffer-cap", cfg.BufferCap, "receive buffer cap in bytes")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log every decoded line")

	return cmd
}

func newConvertCmd(log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <raw-file> <csv>",
		Short: "Convert a raw binary snolog capture into a CSV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := convert.File(args[0], args[1], log)
			if err != nil {
				return err
			}
			log.Info().Int("records", n).Str("csv", args[1]).Msg("conversion complete")
			return nil
		},
	}
}

func newExpandFlagsCmd(log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "expand-flags <csv>",
		Short: "Add per-flag health columns to a capture CSV, in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := convert.ExpandHealthFlags(args[0]); err != nil {
				return err
			}
			log.Info().Str("csv", args[0]).Msg("health flags expanded")
			return nil
		},
	}
}
