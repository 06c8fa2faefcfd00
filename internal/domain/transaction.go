package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fractional digits carried by every amount.
const AmountPlaces int32 = 4

// Kind identifies the type of a transaction event.
type Kind uint8

const (
	// KindDeposit credits a client's available funds.
	KindDeposit Kind = iota + 1
	// KindWithdrawal debits a client's available funds.
	KindWithdrawal
	// KindDispute holds the funds of a prior transaction.
	KindDispute
	// KindResolve releases the funds held by a dispute.
	KindResolve
	// KindChargeback reverses a disputed transaction and locks the account.
	KindChargeback
)

var kindNames = map[Kind]string{
	KindDeposit:    "deposit",
	KindWithdrawal: "withdrawal",
	KindDispute:    "dispute",
	KindResolve:    "resolve",
	KindChargeback: "chargeback",
}

// String returns the lowercase wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// CarriesAmount reports whether events of this kind must carry an amount.
func (k Kind) CarriesAmount() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// ParseKind converts a wire name into a Kind. Matching is case-insensitive
// and ignores surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == normalized {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

// Event is one parsed input record.
// Amount is only meaningful when HasAmount is true, which the reader
// guarantees for deposits and withdrawals.
type Event struct {
	Kind      Kind
	Client    uint16
	Tx        uint32
	Amount    decimal.Decimal
	HasAmount bool
}

// Deposit builds a deposit event.
func Deposit(client uint16, tx uint32, amount decimal.Decimal) Event {
	return Event{Kind: KindDeposit, Client: client, Tx: tx, Amount: amount, HasAmount: true}
}

// Withdrawal builds a withdrawal event.
func Withdrawal(client uint16, tx uint32, amount decimal.Decimal) Event {
	return Event{Kind: KindWithdrawal, Client: client, Tx: tx, Amount: amount, HasAmount: true}
}

// Dispute builds a dispute event referencing tx.
func Dispute(client uint16, tx uint32) Event {
	return Event{Kind: KindDispute, Client: client, Tx: tx}
}

// Resolve builds a resolve event referencing tx.
func Resolve(client uint16, tx uint32) Event {
	return Event{Kind: KindResolve, Client: client, Tx: tx}
}

// Chargeback builds a chargeback event referencing tx.
func Chargeback(client uint16, tx uint32) Event {
	return Event{Kind: KindChargeback, Client: client, Tx: tx}
}

// plainAmount matches unsigned fixed-point decimals. Exponent forms like
// 1e9 are excluded; their cost grows with the exponent, not the input.
var plainAmount = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseAmount parses a plain decimal amount and rounds it to AmountPlaces.
// Negative amounts and exponent notation are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "-") {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	if !plainAmount.MatchString(trimmed) {
		return decimal.Zero, fmt.Errorf("invalid amount %q: want digits with an optional fraction", s)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.RoundBank(AmountPlaces), nil
}

// FormatAmount renders an amount with exactly AmountPlaces fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixedBank(AmountPlaces)
}
