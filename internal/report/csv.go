package report

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/dvloznov/payments-engine/internal/ledger"
)

// CSVWriter writes `client,available,held,total,locked` rows.
type CSVWriter struct {
	w io.Writer
}

// NewCSVWriter creates a CSV report writer on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

func (c *CSVWriter) Write(ctx context.Context, accounts []ledger.AccountSnapshot) error {
	cw := csv.NewWriter(c.w)
	if err := cw.Write(Header); err != nil {
		return &OutputError{Sink: "csv", Err: err}
	}
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return &OutputError{Sink: "csv", Err: err}
		}
		if err := cw.Write(row(a)); err != nil {
			return &OutputError{Sink: "csv", Err: err}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return &OutputError{Sink: "csv", Err: err}
	}
	return nil
}
