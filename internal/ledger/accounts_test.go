package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/payments-engine/internal/domain"
)

func TestAccountStoreGetOrCreate(t *testing.T) {
	s := NewAccountStore()

	a := s.GetOrCreate(9)
	assert.Equal(t, uint16(9), a.Client)
	assert.True(t, a.Available.IsZero())
	assert.Same(t, a, s.GetOrCreate(9))
	assert.Equal(t, 1, s.Len())
}

func TestAccountStoreSnapshotIsSortedCopy(t *testing.T) {
	s := NewAccountStore()
	for _, c := range []uint16{5, 1, 3} {
		s.GetOrCreate(c).Available = amt("1.5")
	}
	s.GetOrCreate(3).Held = amt("2")

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []uint16{1, 3, 5}, []uint16{snap[0].Client, snap[1].Client, snap[2].Client})
	assert.True(t, snap[1].Total.Equal(amt("3.5")))

	// Mutating the store afterwards must not leak into the snapshot.
	s.GetOrCreate(1).Available = amt("100")
	assert.True(t, snap[0].Available.Equal(amt("1.5")))
}

func TestTxLogAppendAndLookup(t *testing.T) {
	l := NewTxLog()
	assert.False(t, l.Contains(1))

	e := l.Append(domain.Withdrawal(4, 1, amt("2")))
	assert.Equal(t, domain.KindWithdrawal, e.Kind)
	assert.Equal(t, domain.TxNormal, e.Status)

	got, ok := l.Lookup(1)
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Equal(t, 1, l.Len())
}

func TestRejectionError(t *testing.T) {
	err := reject(domain.Dispute(2, 7), ErrClientMismatch)
	assert.EqualError(t, err, "dispute tx=7 client=2 ignored: transaction belongs to another client")
	assert.True(t, IsRejection(err))
	assert.False(t, IsRejection(ErrClientMismatch))
	assert.Equal(t, "client_mismatch", reasonKey(err))
}
