package capture

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/sensorlogic/snodar/internal/cliconfig"
)

// ConfigWatcher monitors the capture tool's TOML config file via
// fsnotify and applies the safe-to-change settings (measurement
// interval, read delay, verbosity) to a running Runner. Settings that
// would require reopening the port or the log file are ignored until
// the next start.
type ConfigWatcher struct {
	path   string
	runner *Runner
	log    zerolog.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// NewConfigWatcher returns a watcher for the config file at path.
func NewConfigWatcher(path string, runner *Runner, log zerolog.Logger) *ConfigWatcher {
	return &ConfigWatcher{path: path, runner: runner, log: log}
}

// Run watches the config file's directory until ctx is cancelled.
// Watcher setup failures are logged, not fatal: live reload is a
// convenience, not part of the capture contract.
func (w *ConfigWatcher) Run(ctx context.Context) {
	if w.path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn().Err(err).Msg("config watcher: failed to create watcher")
		return
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace the file on
	// save and a direct file watch would go stale.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("config watcher: failed to watch config directory")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(100 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher: error")
		}
	}
}

func (w *ConfigWatcher) debounceReload(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(delay, w.reload)
}

func (w *ConfigWatcher) reload() {
	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("config watcher: reload failed")
		return
	}

	// Seed a full config from defaults plus the current live settings
	// so Validate sees a coherent whole, then overlay the file.
	s := w.runner.Settings()
	cfg := cliconfig.DefaultConfig()
	cfg.MeasurementInterval = s.MeasurementInterval
	cfg.ReadDelay = s.ReadDelay
	cfg.Verbose = s.Verbose

	if err := cliconfig.ApplyFileConfig(&cfg, fc, nil); err != nil {
		w.log.Warn().Err(err).Msg("config watcher: invalid config update ignored")
		return
	}
	if err := cfg.Validate(); err != nil {
		w.log.Warn().Err(err).Msg("config watcher: invalid config update ignored")
		return
	}

	w.runner.UpdateSettings(Settings{
		MeasurementInterval: cfg.MeasurementInterval,
		ReadDelay:           cfg.ReadDelay,
		Verbose:             cfg.Verbose,
	})
	w.log.Info().
		Dur("measurement_interval", cfg.MeasurementInterval).
		Dur("read_delay", cfg.ReadDelay).
		Bool("verbose", cfg.Verbose).
		Msg("config watcher: applied settings update")
}
