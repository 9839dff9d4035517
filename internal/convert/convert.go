// Package convert turns previously captured data into CSV offline: raw
// binary snolog dumps into tabular logs, and existing capture CSVs into
// expanded per-flag health columns.
package convert

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sensorlogic/snodar/internal/adapters/csvsink"
	"github.com/sensorlogic/snodar/internal/frame"
	"github.com/sensorlogic/snodar/internal/snolog"
)

// feedChunk is the slice size for pushing file contents through the
// accumulator, well under its cap so nothing is ever dropped.
const feedChunk = 2048

// File decodes every snolog packet in the raw capture at inPath and
// writes one CSV row per record to outPath, returning the record count.
// Corrupted stretches are resynchronized past with diagnostics, same as
// live capture. The capture_time column is left empty; the device's
// unix_time field carries the timestamp for historical data.
func File(inPath, outPath string, log zerolog.Logger) (int, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return 0, fmt.Errorf("open raw log: %w", err)
	}

	sink, err := csvsink.Create(outPath, snolog.Fields())
	if err != nil {
		return 0, err
	}

	acc := frame.NewAccumulator(log)
	n := 0
	for off := 0; off < len(data); off += feedChunk {
		end := off + feedChunk
		if end > len(data) {
			end = len(data)
		}
		acc.Feed(data[off:end])
		for _, rec := range acc.Drain() {
			rec.Timestamp = time.Time{} // no capture clock for offline data
			if err := sink.Append(rec.Row()); err != nil {
				sink.Close()
				return n, fmt.Errorf("append log row: %w", err)
			}
			n++
		}
	}
	if tail := acc.Pending(); tail > 0 {
		log.Warn().Int("bytes", tail).Msg("trailing partial packet at end of file")
	}
	return n, sink.Close()
}

// ExpandHealthFlags rewrites the capture CSV at path in place,
// appending one boolean column per parsed health flag. It accepts both
// RS-232 capture logs (health_flags_hi/health_flags_lo columns) and
// logs downloaded from the mobile app (a single hex LIVE_HEALTH_FLAGS
// column).
func ExpandHealthFlags(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("csv %s is empty", path)
	}

	extract := flagExtractor(rows[0])
	if extract == nil {
		return fmt.Errorf("csv %s has no health flag columns", path)
	}

	out := make([][]string, 0, len(rows))
	out = append(out, append(append([]string{}, rows[0]...), snolog.HealthFlagNames...))
	for _, row := range rows[1:] {
		hf, err := extract(row)
		if err != nil {
			return err
		}
		out = append(out, append(append([]string{}, row...), boolRow(hf)...))
	}

	return writeCSV(path, out)
}

func boolRow(hf snolog.HealthFlags) []string {
	vals := hf.Values()
	out := make([]string, len(vals))
	for i, ok := range vals {
		out[i] = strconv.FormatBool(ok)
	}
	return out
}

// flagExtractor returns a function pulling HealthFlags out of one data
// row, or nil when the header carries no recognizable flag columns.
func flagExtractor(header []string) func(row []string) (snolog.HealthFlags, error) {
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		return -1
	}

	if hi, lo := col("health_flags_hi"), col("health_flags_lo"); hi >= 0 && lo >= 0 {
		return func(row []string) (snolog.HealthFlags, error) {
			h, err := strconv.ParseUint(row[hi], 10, 8)
			if err != nil {
				return snolog.HealthFlags{}, fmt.Errorf("parse health_flags_hi: %w", err)
			}
			l, err := strconv.ParseUint(row[lo], 10, 8)
			if err != nil {
				return snolog.HealthFlags{}, fmt.Errorf("parse health_flags_lo: %w", err)
			}
			return snolog.ParseHealthFlags(byte(h), byte(l)), nil
		}
	}

	if packed := col("LIVE_HEALTH_FLAGS"); packed >= 0 {
		return func(row []string) (snolog.HealthFlags, error) {
			v, err := strconv.ParseUint(row[packed], 16, 16)
			if err != nil {
				return snolog.HealthFlags{}, fmt.Errorf("parse LIVE_HEALTH_FLAGS: %w", err)
			}
			return snolog.ParseHealthFlags(byte(v>>8), byte(v)), nil
		}
	}

	return nil
}

// writeCSV replaces path atomically: write a sibling temp file, then
// rename over the original.
func writeCSV(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp csv: %w", err)
	}
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace csv: %w", err)
	}
	return nil
}
