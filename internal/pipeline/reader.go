package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

const (
	// DefaultChunkSize is the read buffer size used when none is configured.
	DefaultChunkSize = 64 * 1024
	// MinChunkSize is the smallest read buffer the reader will use.
	MinChunkSize = 4096
)

// ReadStats counts what the reader saw.
type ReadStats struct {
	Records   int
	Malformed int
	Published int
}

// Reader parses CSV transaction records from a source and publishes them
// on a Channel. Memory use is bounded by the chunk size, not the input size.
type Reader struct {
	src       io.Reader
	chunkSize int
	log       zerolog.Logger
	stats     ReadStats
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithChunkSize sets the read buffer size. Values below MinChunkSize are raised to it.
func WithChunkSize(n int) ReaderOption {
	return func(r *Reader) {
		if n < MinChunkSize {
			n = MinChunkSize
		}
		r.chunkSize = n
	}
}

// WithReaderLogger sets the logger used for malformed records.
func WithReaderLogger(log zerolog.Logger) ReaderOption {
	return func(r *Reader) {
		r.log = log
	}
}

// NewReader creates a reader over src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:       src,
		chunkSize: DefaultChunkSize,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads the source to the end, publishing every well-formed record in
// order. The channel is always closed when Run returns. Malformed records
// are skipped; read failures and cancellation return an *IngestionError.
//
// The source is split into lines through a chunkSize buffer and each line
// is parsed on its own. Lines longer than chunkSize are dropped as
// malformed, and a stray quote never reaches past its own line.
func (r *Reader) Run(ctx context.Context, ch *Channel) error {
	defer ch.Close()

	br := bufio.NewReaderSize(r.src, r.chunkSize)
	src := &lineSource{}
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	first := true
	line := 0
	for {
		raw, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			line++
			first = false
			r.stats.Records++
			r.skip(line, fmt.Sprintf("record exceeds %d bytes", r.chunkSize))
			if err := discardLine(br); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return &IngestionError{Line: line, Err: err}
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return &IngestionError{Line: line, Err: err}
		}

		if len(raw) > 0 {
			line++
			rec, ok := r.record(cr, src, line, raw, first)
			if !isBlank(raw) {
				first = false
			}
			if ok {
				if perr := r.publish(ctx, ch, line, rec); perr != nil {
					return perr
				}
			}
		}

		if err != nil {
			return nil
		}
	}
}

// record splits one line into fields. ok is false for blank, header and
// malformed lines; only malformed ones are counted.
func (r *Reader) record(cr *csv.Reader, src *lineSource, line int, raw []byte, first bool) ([]string, bool) {
	if isBlank(raw) {
		return nil, false
	}

	src.reset(raw)
	rec, err := cr.Read()
	src.reset(nil)
	if errors.Is(err, io.EOF) {
		return nil, false
	}
	if err != nil {
		r.stats.Records++
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			r.skip(line, csvErr.Err.Error())
		} else {
			r.skip(line, err.Error())
		}
		return nil, false
	}

	if first && isHeader(rec) {
		return nil, false
	}
	r.stats.Records++
	return rec, true
}

func (r *Reader) publish(ctx context.Context, ch *Channel, line int, rec []string) error {
	ev, err := parseRecord(rec)
	if err != nil {
		r.skip(line, err.Error())
		return nil
	}

	if err := ch.Publish(ctx, ev); err != nil {
		return &IngestionError{Line: line, Err: err}
	}
	r.stats.Published++
	return nil
}

func (r *Reader) skip(line int, reason string) {
	r.stats.Malformed++
	perr := &ParseError{Line: line, Reason: reason}
	r.log.Debug().Err(perr).Msg("Skipping malformed record")
}

// Stats returns the reader counters. Only meaningful after Run returns.
func (r *Reader) Stats() ReadStats {
	return r.stats
}

// lineSource hands exactly one line at a time to the csv reader.
type lineSource struct {
	b []byte
}

func (s *lineSource) reset(b []byte) {
	s.b = b
}

func (s *lineSource) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}

// discardLine skips the remainder of an overlong line.
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func isBlank(raw []byte) bool {
	return len(bytes.TrimSpace(raw)) == 0
}
