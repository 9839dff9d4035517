package ports

import "time"

// RecordSink persists decoded records as rows of a tabular log. The
// column set is fixed when the sink is opened and stable for the whole
// run.
type RecordSink interface {
	// Append writes one row. Implementations flush eagerly enough that
	// an abrupt process exit loses at most the row being written.
	Append(row []string) error

	// Close flushes buffered writes and releases the underlying store.
	Close() error
}

// Display renders decoded measurements for the operator. It is purely
// observational: implementations must return quickly and never feed
// back into capture or persistence.
type Display interface {
	Update(t time.Time, distance float64)
}
