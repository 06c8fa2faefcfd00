package report

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/dvloznov/payments-engine/internal/ledger"
)

// BalanceRow is one exported account balance.
type BalanceRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	Client int64 `bigquery:"client"` // REQUIRED

	Available *big.Rat `bigquery:"available"` // REQUIRED NUMERIC
	Held      *big.Rat `bigquery:"held"`      // REQUIRED NUMERIC
	Total     *big.Rat `bigquery:"total"`     // REQUIRED NUMERIC

	Locked bool `bigquery:"locked"` // REQUIRED

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// Inserter streams rows into a table. *bigquery.Inserter satisfies it.
type Inserter interface {
	Put(ctx context.Context, src interface{}) error
}

// BigQueryWriter appends the snapshot to a BigQuery table, tagged with the run id.
type BigQueryWriter struct {
	inserter Inserter
	runID    string
	now      func() time.Time
	client   *bigquery.Client
	table    string
}

// NewBigQueryWriter creates a writer over an existing inserter.
func NewBigQueryWriter(inserter Inserter, runID string) *BigQueryWriter {
	return &BigQueryWriter{
		inserter: inserter,
		runID:    runID,
		now:      time.Now,
	}
}

// NewBigQueryTableWriter creates a BigQuery client for project and writes
// into dataset.table. Close releases the client.
func NewBigQueryTableWriter(ctx context.Context, project, dataset, table, runID string, opts ...option.ClientOption) (*BigQueryWriter, error) {
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryTableWriter: creating client: %w", err)
	}
	w := NewBigQueryWriter(client.Dataset(dataset).Table(table).Inserter(), runID)
	w.client = client
	w.table = fmt.Sprintf("%s.%s.%s", project, dataset, table)
	return w, nil
}

// EnsureTable creates the balances table if it doesn't exist. Only valid on
// writers built by NewBigQueryTableWriter.
func (b *BigQueryWriter) EnsureTable(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("EnsureTable: writer has no client")
	}

	job, err := b.client.Query(balancesDDL(b.table)).Run(ctx)
	if err != nil {
		return fmt.Errorf("EnsureTable: running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("EnsureTable: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("EnsureTable: job error: %w", err)
	}
	return nil
}

func balancesDDL(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s`"+` (
			run_id       STRING NOT NULL,
			client       INT64 NOT NULL,
			available    NUMERIC NOT NULL,
			held         NUMERIC NOT NULL,
			total        NUMERIC NOT NULL,
			locked       BOOL NOT NULL,
			exported_ts  TIMESTAMP NOT NULL
		)
	`, table)
}

// Close closes the BigQuery client connection, if this writer owns one.
func (b *BigQueryWriter) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

func (b *BigQueryWriter) Write(ctx context.Context, accounts []ledger.AccountSnapshot) error {
	if len(accounts) == 0 {
		return nil
	}

	rows := BalanceRows(accounts, b.runID, b.now())
	if err := b.inserter.Put(ctx, rows); err != nil {
		return &OutputError{Sink: "bigquery", Err: fmt.Errorf("inserting %d rows: %w", len(rows), err)}
	}
	return nil
}

// BalanceRows converts a snapshot into export rows sharing one timestamp.
func BalanceRows(accounts []ledger.AccountSnapshot, runID string, exported time.Time) []*BalanceRow {
	rows := make([]*BalanceRow, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, &BalanceRow{
			RunID:      runID,
			Client:     int64(a.Client),
			Available:  a.Available.Rat(),
			Held:       a.Held.Rat(),
			Total:      a.Total.Rat(),
			Locked:     a.Locked,
			ExportedTS: exported,
		})
	}
	return rows
}
