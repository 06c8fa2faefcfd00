package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/payments-engine/internal/domain"
)

func TestNewChannel_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewChannel(0).Cap())
	assert.Equal(t, DefaultCapacity, NewChannel(-3).Cap())
	assert.Equal(t, 8, NewChannel(8).Cap())
}

func TestChannel_PreservesOrder(t *testing.T) {
	ch := NewChannel(1)
	const n = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ch.Close()
		for i := 1; i <= n; i++ {
			assert.NoError(t, ch.Publish(context.Background(), domain.Deposit(1, uint32(i), decimal.NewFromInt(1))))
		}
	}()

	var got []uint32
	for ev := range ch.Events() {
		got = append(got, ev.Tx)
	}
	wg.Wait()

	require.Len(t, got, n)
	for i, tx := range got {
		assert.Equal(t, uint32(i+1), tx)
	}
}

func TestChannel_Backpressure(t *testing.T) {
	ch := NewChannel(1)
	require.NoError(t, ch.Publish(context.Background(), domain.Dispute(1, 1)))
	assert.Equal(t, 1, ch.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := ch.Publish(ctx, domain.Dispute(1, 2))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, ch.Len(), "blocked publish must not enqueue")
}

func TestChannel_PublishCancelled(t *testing.T) {
	ch := NewChannel(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ch.Publish(ctx, domain.Dispute(1, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, ch.Len())
}

func TestChannel_Close(t *testing.T) {
	ch := NewChannel(4)
	require.NoError(t, ch.Publish(context.Background(), domain.Dispute(1, 1)))

	ch.Close()
	ch.Close()

	assert.ErrorIs(t, ch.Publish(context.Background(), domain.Dispute(1, 2)), ErrChannelClosed)

	// Buffered events survive close.
	ev, ok := <-ch.Events()
	require.True(t, ok)
	assert.Equal(t, uint32(1), ev.Tx)

	_, ok = <-ch.Events()
	assert.False(t, ok)
}
