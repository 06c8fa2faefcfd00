package pipeline

import (
	"errors"
	"fmt"
)

// ErrChannelClosed is returned when publishing after the channel was closed.
var ErrChannelClosed = errors.New("ingestion channel is closed")

// ParseError describes a malformed input record. The reader drops such
// records and keeps going; it is never returned from Run.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// IngestionError is a fatal failure while reading the record source.
type IngestionError struct {
	Line int
	Err  error
}

func (e *IngestionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ingestion failed near line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("ingestion failed: %v", e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	var ing *IngestionError
	return errors.As(err, &ing)
}
