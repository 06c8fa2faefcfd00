package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/payments-engine/internal/domain"
)

// Entry is an accepted deposit or withdrawal kept for later disputes.
type Entry struct {
	Tx     uint32
	Client uint16
	Kind   domain.Kind
	Amount decimal.Decimal
	Status domain.TxStatus
}

// TxLog is the append-only log of accepted deposits and withdrawals.
// It is not safe for concurrent use; the processor is its only user.
type TxLog struct {
	entries map[uint32]*Entry
}

// NewTxLog creates an empty transaction log.
func NewTxLog() *TxLog {
	return &TxLog{entries: make(map[uint32]*Entry)}
}

// Contains reports whether tx has been logged.
func (l *TxLog) Contains(tx uint32) bool {
	_, ok := l.entries[tx]
	return ok
}

// Append records a new entry in the Normal state.
// The caller must check Contains first; an existing entry is never replaced.
func (l *TxLog) Append(ev domain.Event) *Entry {
	e := &Entry{
		Tx:     ev.Tx,
		Client: ev.Client,
		Kind:   ev.Kind,
		Amount: ev.Amount,
		Status: domain.TxNormal,
	}
	l.entries[ev.Tx] = e
	return e
}

// Lookup returns the entry for tx, if any.
func (l *TxLog) Lookup(tx uint32) (*Entry, bool) {
	e, ok := l.entries[tx]
	return e, ok
}

// Len returns the number of logged entries.
func (l *TxLog) Len() int {
	return len(l.entries)
}
