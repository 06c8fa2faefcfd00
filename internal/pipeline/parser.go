package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/payments-engine/internal/domain"
)

const (
	fieldType = iota
	fieldClient
	fieldTx
	fieldAmount
)

// isHeader reports whether rec is the `type,client,tx,amount` header row.
func isHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[fieldType]), "type")
}

// parseRecord converts one CSV record into an event.
func parseRecord(rec []string) (domain.Event, error) {
	if len(rec) < 3 || len(rec) > 4 {
		return domain.Event{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(rec))
	}

	kind, err := domain.ParseKind(rec[fieldType])
	if err != nil {
		return domain.Event{}, err
	}

	client, err := strconv.ParseUint(strings.TrimSpace(rec[fieldClient]), 10, 16)
	if err != nil {
		return domain.Event{}, fmt.Errorf("invalid client %q", rec[fieldClient])
	}

	tx, err := strconv.ParseUint(strings.TrimSpace(rec[fieldTx]), 10, 32)
	if err != nil {
		return domain.Event{}, fmt.Errorf("invalid tx %q", rec[fieldTx])
	}

	ev := domain.Event{
		Kind:   kind,
		Client: uint16(client),
		Tx:     uint32(tx),
	}

	if !kind.CarriesAmount() {
		// Dispute-lifecycle records may carry an empty trailing column; any
		// amount given there is not used.
		return ev, nil
	}

	if len(rec) < 4 || strings.TrimSpace(rec[fieldAmount]) == "" {
		return domain.Event{}, fmt.Errorf("%s requires an amount", kind)
	}
	amount, err := domain.ParseAmount(rec[fieldAmount])
	if err != nil {
		return domain.Event{}, err
	}
	ev.Amount = amount
	ev.HasAmount = true

	return ev, nil
}
