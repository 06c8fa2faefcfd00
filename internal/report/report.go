// Package report renders the final account snapshot.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dvloznov/payments-engine/internal/domain"
	"github.com/dvloznov/payments-engine/internal/ledger"
)

// Header is the column order shared by every tabular format.
var Header = []string{"client", "available", "held", "total", "locked"}

// Writer emits a snapshot to some sink.
type Writer interface {
	Write(ctx context.Context, accounts []ledger.AccountSnapshot) error
}

// OutputError is a failure while emitting a report. The snapshot itself
// is intact; only the sink failed.
type OutputError struct {
	Sink string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("writing %s report: %v", e.Sink, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// IsOutputError reports whether err came from a report sink.
func IsOutputError(err error) bool {
	var out *OutputError
	return errors.As(err, &out)
}

// New returns the stdout-style writer for format ("csv" or "table").
func New(format string, w io.Writer) (Writer, error) {
	switch format {
	case "csv":
		return NewCSVWriter(w), nil
	case "table":
		return NewTableWriter(w), nil
	default:
		return nil, fmt.Errorf("New: unknown report format %q", format)
	}
}

// row formats one account in Header order.
func row(a ledger.AccountSnapshot) []string {
	return []string{
		strconv.FormatUint(uint64(a.Client), 10),
		domain.FormatAmount(a.Available),
		domain.FormatAmount(a.Held),
		domain.FormatAmount(a.Total),
		strconv.FormatBool(a.Locked),
	}
}
