package domain

import "github.com/shopspring/decimal"

// Account is the balance state of one client.
// Total is always derived from Available and Held.
type Account struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// NewAccount returns an empty, unlocked account for client.
func NewAccount(client uint16) *Account {
	return &Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

// Total returns available plus held funds.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// TxStatus is the dispute lifecycle state of a logged transaction.
type TxStatus uint8

const (
	// TxNormal is the state of a freshly accepted transaction.
	TxNormal TxStatus = iota
	// TxDisputed means the transaction's amount is held.
	TxDisputed
	// TxResolved is a terminal post-dispute state, only used with terminal resolves.
	TxResolved
	// TxChargedBack is terminal; the funds were reversed.
	TxChargedBack
)

// String returns a readable name for the status.
func (s TxStatus) String() string {
	switch s {
	case TxNormal:
		return "normal"
	case TxDisputed:
		return "disputed"
	case TxResolved:
		return "resolved"
	case TxChargedBack:
		return "charged_back"
	default:
		return "unknown"
	}
}
