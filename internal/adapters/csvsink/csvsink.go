// Package csvsink implements ports.RecordSink as a CSV file.
package csvsink

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Sink writes one CSV row per record. The file is created or truncated
// at open and the header row written immediately; every row is flushed
// so a crash loses at most the row in flight.
type Sink struct {
	f *os.File
	w *csv.Writer
}

// Create opens path for writing and emits the header row.
func Create(path string, header []string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv log %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &Sink{f: f, w: w}, nil
}

// Append writes and flushes one row.
func (s *Sink) Append(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes pending writes and closes the file.
func (s *Sink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
