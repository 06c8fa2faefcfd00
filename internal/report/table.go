package report

import (
	"bufio"
	"context"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/dvloznov/payments-engine/internal/ledger"
)

// TableWriter renders the snapshot as a bordered text table for humans.
type TableWriter struct {
	w io.Writer
}

// NewTableWriter creates a table report writer on w.
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{w: w}
}

func (t *TableWriter) Write(ctx context.Context, accounts []ledger.AccountSnapshot) error {
	if err := ctx.Err(); err != nil {
		return &OutputError{Sink: "table", Err: err}
	}

	// tablewriter swallows write errors, so buffer and check on flush.
	bw := bufio.NewWriter(t.w)
	table := tablewriter.NewWriter(bw)
	table.SetHeader(Header)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, a := range accounts {
		table.Append(row(a))
	}
	table.Render()

	if err := bw.Flush(); err != nil {
		return &OutputError{Sink: "table", Err: err}
	}
	return nil
}
