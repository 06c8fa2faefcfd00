package ledger

import (
	"github.com/rs/zerolog"

	"github.com/dvloznov/payments-engine/internal/domain"
)

// Stats counts what the processor did with the events it received.
type Stats struct {
	Applied int
	Ignored map[string]int
}

// IgnoredTotal returns the number of events dropped for any reason.
func (s Stats) IgnoredTotal() int {
	n := 0
	for _, c := range s.Ignored {
		n += c
	}
	return n
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for rejected events.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Processor) {
		p.log = log
	}
}

// WithTerminalResolve makes a resolve final: the entry moves to Resolved
// and can never be disputed again.
func WithTerminalResolve() Option {
	return func(p *Processor) {
		p.terminalResolve = true
	}
}

// Processor applies events to the account store and transaction log.
// It owns both exclusively and must be driven from a single goroutine.
type Processor struct {
	accounts        *AccountStore
	txlog           *TxLog
	log             zerolog.Logger
	terminalResolve bool
	stats           Stats
}

// NewProcessor creates a processor with empty state.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		accounts: NewAccountStore(),
		txlog:    NewTxLog(),
		log:      zerolog.Nop(),
		stats:    Stats{Ignored: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run applies every event received on events until the channel is closed.
// Rejections are logged and counted; they never stop the run.
func (p *Processor) Run(events <-chan domain.Event) {
	for ev := range events {
		if err := p.Apply(ev); err != nil {
			p.log.Debug().Err(err).
				Str("kind", ev.Kind.String()).
				Uint32("tx", ev.Tx).
				Uint16("client", ev.Client).
				Msg("Event ignored")
		}
	}
	p.log.Debug().
		Int("applied", p.stats.Applied).
		Int("ignored", p.stats.IgnoredTotal()).
		Msg("Processor drained")
}

// Apply executes the policy for one event. A non-nil result is always a
// *RejectionError and means nothing was mutated.
func (p *Processor) Apply(ev domain.Event) error {
	var err error
	switch ev.Kind {
	case domain.KindDeposit:
		err = p.deposit(ev)
	case domain.KindWithdrawal:
		err = p.withdraw(ev)
	case domain.KindDispute:
		err = p.dispute(ev)
	case domain.KindResolve:
		err = p.resolve(ev)
	case domain.KindChargeback:
		err = p.chargeback(ev)
	default:
		p.accounts.GetOrCreate(ev.Client)
		err = reject(ev, ErrUnknownKind)
	}

	if err != nil {
		p.stats.Ignored[reasonKey(err)]++
		return err
	}
	p.stats.Applied++
	return nil
}

func (p *Processor) deposit(ev domain.Event) error {
	acct := p.accounts.GetOrCreate(ev.Client)
	if err := p.checkMovement(ev, acct); err != nil {
		return err
	}

	acct.Available = acct.Available.Add(ev.Amount)
	p.txlog.Append(ev)
	return nil
}

func (p *Processor) withdraw(ev domain.Event) error {
	acct := p.accounts.GetOrCreate(ev.Client)
	if err := p.checkMovement(ev, acct); err != nil {
		return err
	}
	if acct.Available.LessThan(ev.Amount) {
		return reject(ev, ErrInsufficientFunds)
	}

	acct.Available = acct.Available.Sub(ev.Amount)
	p.txlog.Append(ev)
	return nil
}

// checkMovement validates the preconditions shared by deposits and withdrawals.
func (p *Processor) checkMovement(ev domain.Event, acct *domain.Account) error {
	if !ev.HasAmount || ev.Amount.IsNegative() {
		return reject(ev, ErrInvalidAmount)
	}
	if acct.Locked {
		return reject(ev, ErrAccountLocked)
	}
	if p.txlog.Contains(ev.Tx) {
		return reject(ev, ErrDuplicateTransaction)
	}
	return nil
}

func (p *Processor) dispute(ev domain.Event) error {
	acct, ref, err := p.reference(ev, domain.TxNormal)
	if err != nil {
		return err
	}

	acct.Available = acct.Available.Sub(ref.Amount)
	acct.Held = acct.Held.Add(ref.Amount)
	ref.Status = domain.TxDisputed
	return nil
}

func (p *Processor) resolve(ev domain.Event) error {
	acct, ref, err := p.reference(ev, domain.TxDisputed)
	if err != nil {
		return err
	}

	acct.Held = acct.Held.Sub(ref.Amount)
	acct.Available = acct.Available.Add(ref.Amount)
	if p.terminalResolve {
		ref.Status = domain.TxResolved
	} else {
		ref.Status = domain.TxNormal
	}
	return nil
}

func (p *Processor) chargeback(ev domain.Event) error {
	acct, ref, err := p.reference(ev, domain.TxDisputed)
	if err != nil {
		return err
	}

	acct.Held = acct.Held.Sub(ref.Amount)
	acct.Locked = true
	ref.Status = domain.TxChargedBack
	return nil
}

// reference resolves the log entry a dispute-lifecycle event points at and
// checks ownership and the expected status.
func (p *Processor) reference(ev domain.Event, want domain.TxStatus) (*domain.Account, *Entry, error) {
	acct := p.accounts.GetOrCreate(ev.Client)

	ref, ok := p.txlog.Lookup(ev.Tx)
	if !ok {
		return nil, nil, reject(ev, ErrUnknownTransaction)
	}
	if ref.Client != ev.Client {
		return nil, nil, reject(ev, ErrClientMismatch)
	}
	if ref.Status != want {
		return nil, nil, reject(ev, ErrInvalidTransition)
	}
	return acct, ref, nil
}

// Snapshot returns a copy of every account. Call it only after Run returns.
func (p *Processor) Snapshot() []AccountSnapshot {
	return p.accounts.Snapshot()
}

// Stats returns a copy of the run counters.
func (p *Processor) Stats() Stats {
	ignored := make(map[string]int, len(p.stats.Ignored))
	for k, v := range p.stats.Ignored {
		ignored[k] = v
	}
	return Stats{Applied: p.stats.Applied, Ignored: ignored}
}

// Accounts exposes the account store for inspection in tests and tooling.
func (p *Processor) Accounts() *AccountStore {
	return p.accounts
}

// TxLog exposes the transaction log for inspection in tests and tooling.
func (p *Processor) TxLog() *TxLog {
	return p.txlog
}
