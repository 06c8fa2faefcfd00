// Package config parses payments-engine command-line flags. Every flag
// falls back to an environment variable so the binary can run unchanged
// in a container.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dvloznov/payments-engine/internal/logger"
	"github.com/dvloznov/payments-engine/internal/pipeline"
)

// Output formats.
const (
	FormatCSV   = "csv"
	FormatTable = "table"
)

// StdinInput selects standard input as the record source.
const StdinInput = "-"

// Config is the resolved runtime configuration.
type Config struct {
	Input           string
	Capacity        int
	ChunkSize       int
	Format          string
	LogLevel        string
	TerminalResolve bool
	BQTable         string
	Credentials     string
}

// TableRef identifies a BigQuery table.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

func (r TableRef) String() string {
	return r.Project + "." + r.Dataset + "." + r.Table
}

// UsageError reports invalid flags or arguments.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// Load parses args (without the program name) on top of environment defaults.
// Invalid input yields a *UsageError; -h yields flag.ErrHelp.
func Load(args []string) (Config, error) {
	cfg, err := defaults()
	if err != nil {
		return Config{}, &UsageError{Err: err}
	}

	fs := newFlagSet(&cfg)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, &UsageError{Err: err}
	}

	if fs.NArg() != 1 {
		return Config{}, &UsageError{Err: fmt.Errorf("expected exactly one input, got %d", fs.NArg())}
	}
	cfg.Input = fs.Arg(0)

	if err := cfg.Validate(); err != nil {
		return Config{}, &UsageError{Err: err}
	}
	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return errors.New("input must not be empty")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk-size must be positive, got %d", c.ChunkSize)
	}
	switch c.Format {
	case FormatCSV, FormatTable:
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", c.Format, FormatCSV, FormatTable)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log-level %q: %w", c.LogLevel, err)
	}
	if c.BQTable != "" {
		if _, err := ParseTableRef(c.BQTable); err != nil {
			return err
		}
	}
	return nil
}

// ExportEnabled reports whether the snapshot should also go to BigQuery.
func (c Config) ExportEnabled() bool {
	return c.BQTable != ""
}

// ParseTableRef splits a `project.dataset.table` reference.
func ParseTableRef(s string) (TableRef, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return TableRef{}, fmt.Errorf("invalid bq-table %q: want project.dataset.table", s)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return TableRef{}, fmt.Errorf("invalid bq-table %q: empty component", s)
		}
	}
	return TableRef{Project: parts[0], Dataset: parts[1], Table: parts[2]}, nil
}

// PrintUsage writes the flag synopsis to w.
func PrintUsage(w io.Writer, program string) {
	var cfg Config
	fs := newFlagSet(&cfg)
	fs.SetOutput(w)
	fmt.Fprintf(w, "Usage: %s [flags] <input>\n\n", program)
	fmt.Fprintf(w, "<input> is a CSV file path, %q for stdin, or gs://bucket/object.\n\nFlags:\n", StdinInput)
	fs.PrintDefaults()
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("payments-engine", flag.ContinueOnError)
	fs.IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "Events buffered between reader and processor (or set PAYMENTS_CHANNEL_CAPACITY env)")
	fs.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "Read buffer size in bytes, at least 4096 (or set PAYMENTS_CHUNK_SIZE env)")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Report format: csv or table (or set PAYMENTS_FORMAT env)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level written to stderr (or set PAYMENTS_LOG_LEVEL env)")
	fs.BoolVar(&cfg.TerminalResolve, "terminal-resolve", cfg.TerminalResolve, "Resolved transactions can no longer be disputed")
	fs.StringVar(&cfg.BQTable, "bq-table", cfg.BQTable, "Export snapshot to BigQuery project.dataset.table (or set PAYMENTS_BQ_TABLE env)")
	fs.StringVar(&cfg.Credentials, "credentials", cfg.Credentials, "Service account file for GCS and BigQuery (or set GOOGLE_APPLICATION_CREDENTIALS env)")
	return fs
}

func defaults() (Config, error) {
	capacity, err := envInt("PAYMENTS_CHANNEL_CAPACITY", pipeline.DefaultCapacity)
	if err != nil {
		return Config{}, err
	}
	chunk, err := envInt("PAYMENTS_CHUNK_SIZE", pipeline.DefaultChunkSize)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Capacity:    capacity,
		ChunkSize:   chunk,
		Format:      envString("PAYMENTS_FORMAT", FormatCSV),
		LogLevel:    envString("PAYMENTS_LOG_LEVEL", logger.DefaultLevel.String()),
		BQTable:     os.Getenv("PAYMENTS_BQ_TABLE"),
		Credentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
