package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/payments-engine/internal/domain"
)

// AccountSnapshot is a read-only copy of one account's balances.
type AccountSnapshot struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// AccountStore maps client ids to accounts. Accounts are created on first
// reference and never removed. It has a single writer and takes no locks.
type AccountStore struct {
	accounts map[uint16]*domain.Account
}

// NewAccountStore creates an empty store.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[uint16]*domain.Account)}
}

// GetOrCreate returns the account for client, creating it if needed.
func (s *AccountStore) GetOrCreate(client uint16) *domain.Account {
	a, ok := s.accounts[client]
	if !ok {
		a = domain.NewAccount(client)
		s.accounts[client] = a
	}
	return a
}

// Get returns the account for client without creating it.
func (s *AccountStore) Get(client uint16) (*domain.Account, bool) {
	a, ok := s.accounts[client]
	return a, ok
}

// Len returns the number of known accounts.
func (s *AccountStore) Len() int {
	return len(s.accounts)
}

// Snapshot copies every account, ordered by client id.
func (s *AccountStore) Snapshot() []AccountSnapshot {
	out := make([]AccountSnapshot, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, AccountSnapshot{
			Client:    a.Client,
			Available: a.Available,
			Held:      a.Held,
			Total:     a.Total(),
			Locked:    a.Locked,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}
