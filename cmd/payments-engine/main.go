package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/payments-engine/internal/config"
	"github.com/dvloznov/payments-engine/internal/ledger"
	"github.com/dvloznov/payments-engine/internal/logger"
	"github.com/dvloznov/payments-engine/internal/pipeline"
	"github.com/dvloznov/payments-engine/internal/report"
	"github.com/dvloznov/payments-engine/internal/source"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		config.PrintUsage(stderr, "payments-engine")
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n\n", err)
		config.PrintUsage(stderr, "payments-engine")
		return exitUsage
	}

	base, err := logger.NewWithLevel(stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	runID := uuid.NewString()
	log := logger.WithRunID(base, runID)
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("input", source.Name(cfg.Input)).
		Int("capacity", cfg.Capacity).
		Bool("terminal_resolve", cfg.TerminalResolve).
		Msg("Starting payments engine")

	var clientOpts []option.ClientOption
	if cfg.Credentials != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Credentials))
	}

	src, err := source.Open(ctx, cfg.Input, clientOpts...)
	if err != nil {
		return fail(log, stderr, &pipeline.IngestionError{Err: err})
	}
	defer src.Close()

	procOpts := []ledger.Option{ledger.WithLogger(log)}
	if cfg.TerminalResolve {
		procOpts = append(procOpts, ledger.WithTerminalResolve())
	}
	proc := ledger.NewProcessor(procOpts...)

	if _, err := pipeline.Run(ctx, src, proc, pipeline.Options{
		Capacity:  cfg.Capacity,
		ChunkSize: cfg.ChunkSize,
	}); err != nil {
		return fail(log, stderr, err)
	}

	accounts := proc.Snapshot()

	out, err := report.New(cfg.Format, stdout)
	if err != nil {
		return fail(log, stderr, err)
	}
	if err := out.Write(ctx, accounts); err != nil {
		return fail(log, stderr, err)
	}

	if cfg.ExportEnabled() {
		if err := export(ctx, cfg, runID, accounts, clientOpts); err != nil {
			return fail(log, stderr, err)
		}
		log.Info().Str("table", cfg.BQTable).Int("rows", len(accounts)).Msg("Snapshot exported")
	}

	return exitOK
}

func export(ctx context.Context, cfg config.Config, runID string, accounts []ledger.AccountSnapshot, opts []option.ClientOption) error {
	ref, err := config.ParseTableRef(cfg.BQTable)
	if err != nil {
		return err
	}

	bq, err := report.NewBigQueryTableWriter(ctx, ref.Project, ref.Dataset, ref.Table, runID, opts...)
	if err != nil {
		return &report.OutputError{Sink: "bigquery", Err: err}
	}
	defer bq.Close()

	if err := bq.EnsureTable(ctx); err != nil {
		return &report.OutputError{Sink: "bigquery", Err: err}
	}
	return bq.Write(ctx, accounts)
}

// fail prints a single error line on stderr and picks the exit code.
func fail(log zerolog.Logger, stderr io.Writer, err error) int {
	log.Debug().Err(err).Msg("Payments engine failed")

	switch {
	case pipeline.IsFatal(err):
		fmt.Fprintf(stderr, "error: reading input: %v\n", err)
	case report.IsOutputError(err):
		fmt.Fprintf(stderr, "error: balances computed but not delivered: %v\n", err)
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return exitFailure
}
