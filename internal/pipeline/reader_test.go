package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/payments-engine/internal/domain"
)

// failingSource yields data once, then fails every read.
type failingSource struct {
	data string
	err  error
	done bool
}

func (s *failingSource) Read(p []byte) (int, error) {
	if s.done {
		return 0, s.err
	}
	s.done = true
	return copy(p, s.data), nil
}

func readAll(t *testing.T, src io.Reader, opts ...ReaderOption) ([]domain.Event, ReadStats, error) {
	t.Helper()
	ch := NewChannel(DefaultCapacity)
	r := NewReader(src, opts...)

	err := r.Run(context.Background(), ch)

	var events []domain.Event
	for ev := range ch.Events() {
		events = append(events, ev)
	}
	return events, r.Stats(), err
}

func TestReader_SkipsHeader(t *testing.T) {
	events, stats, err := readAll(t, strings.NewReader("type,client,tx,amount\ndeposit,1,1,1.0\n"))

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.KindDeposit, events[0].Kind)
	assert.Equal(t, ReadStats{Records: 1, Published: 1}, stats)
}

func TestReader_NoHeader(t *testing.T) {
	events, _, err := readAll(t, strings.NewReader("deposit,1,1,1.0\nwithdrawal,1,2,0.5"))

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint32(1), events[0].Tx)
	assert.Equal(t, uint32(2), events[1].Tx)
}

func TestReader_Whitespace(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"deposit,    1,     1,   1.5\n" +
		"  Dispute, 1, 1,\n"

	events, stats, err := readAll(t, strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "1.5", events[0].Amount.String())
	assert.Equal(t, domain.KindDispute, events[1].Kind)
	assert.False(t, events[1].HasAmount)
	assert.Zero(t, stats.Malformed)
}

func TestReader_SkipsMalformed(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"deposit,x,2,1.0",
		"teleport,1,3,1.0",
		"deposit,1,4,1\"0",
		"deposit,1",
		"",
		"withdrawal,1,5,0.5",
	}, "\n")

	events, stats, err := readAll(t, strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint32(1), events[0].Tx)
	assert.Equal(t, uint32(5), events[1].Tx)
	assert.Equal(t, ReadStats{Records: 6, Malformed: 4, Published: 2}, stats)
}

func TestReader_ExponentAmountsMalformed(t *testing.T) {
	input := "deposit,1,1,1e9000000\ndeposit,1,2,1e3\ndeposit,1,3,1E-5\ndeposit,1,4,1.0\n"

	events, stats, err := readAll(t, strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint32(4), events[0].Tx)
	assert.Equal(t, ReadStats{Records: 4, Malformed: 3, Published: 1}, stats)
}

func TestReader_StrayQuoteStaysOnItsLine(t *testing.T) {
	input := "deposit,1,1,\"1.0\ndeposit,1,2,1.0\nwithdrawal,1,3,0.5\ndispute,1,2,\n"

	events, stats, err := readAll(t, strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint32(2), events[0].Tx)
	assert.Equal(t, uint32(3), events[1].Tx)
	assert.Equal(t, domain.KindDispute, events[2].Kind)
	assert.Equal(t, ReadStats{Records: 4, Malformed: 1, Published: 3}, stats)
}

func TestReader_OverlongLineDropped(t *testing.T) {
	long := "deposit,1,1," + strings.Repeat("9", MinChunkSize*3)

	t.Run("followed by records", func(t *testing.T) {
		input := long + "\ndeposit,1,2,1.0\n"

		events, stats, err := readAll(t, strings.NewReader(input), WithChunkSize(MinChunkSize))

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, uint32(2), events[0].Tx)
		assert.Equal(t, ReadStats{Records: 2, Malformed: 1, Published: 1}, stats)
	})

	t.Run("without trailing newline", func(t *testing.T) {
		events, stats, err := readAll(t, strings.NewReader("deposit,1,2,1.0\n"+long), WithChunkSize(MinChunkSize))

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, ReadStats{Records: 2, Malformed: 1, Published: 1}, stats)
	})
}

func TestReader_LastLineWithoutNewline(t *testing.T) {
	events, _, err := readAll(t, strings.NewReader("deposit,1,1,1.0\r\ndeposit,1,2,2.0"))

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2", events[1].Amount.String())
}

func TestReader_SmallChunks(t *testing.T) {
	var b strings.Builder
	b.WriteString("type,client,tx,amount\n")
	for i := 0; i < 2000; i++ {
		fmt.Fprintf(&b, "deposit,1,%d,1.0\n", i+1)
	}

	events, stats, err := readAll(t, strings.NewReader(b.String()), WithChunkSize(1))

	require.NoError(t, err)
	assert.Len(t, events, 2000)
	assert.Equal(t, 2000, stats.Published)
}

func TestWithChunkSize_Clamps(t *testing.T) {
	assert.Equal(t, MinChunkSize, NewReader(nil, WithChunkSize(10)).chunkSize)
	assert.Equal(t, 1<<20, NewReader(nil, WithChunkSize(1<<20)).chunkSize)
	assert.Equal(t, DefaultChunkSize, NewReader(nil).chunkSize)
}

func TestReader_IOError(t *testing.T) {
	boom := errors.New("connection reset")
	src := &failingSource{data: "type,client,tx,amount\ndeposit,1,1,1.0\ndeposit,1,2,2.0\n", err: boom}

	events, stats, err := readAll(t, src)

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, boom)

	var ing *IngestionError
	require.ErrorAs(t, err, &ing)
	assert.Equal(t, 3, ing.Line)

	// Everything before the failure was published and the channel is closed.
	assert.Len(t, events, 2)
	assert.Equal(t, 2, stats.Published)
}

func TestReader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := NewChannel(4)
	err := NewReader(strings.NewReader("deposit,1,1,1.0\n")).Run(ctx, ch)

	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := <-ch.Events()
	assert.False(t, ok, "channel must be closed")
}

func TestIngestionError_Message(t *testing.T) {
	boom := errors.New("boom")
	assert.Equal(t, "ingestion failed near line 7: boom", (&IngestionError{Line: 7, Err: boom}).Error())
	assert.Equal(t, "ingestion failed: boom", (&IngestionError{Err: boom}).Error())
	assert.False(t, IsFatal(boom))
	assert.Equal(t, "line 3: bad", (&ParseError{Line: 3, Reason: "bad"}).Error())
}
