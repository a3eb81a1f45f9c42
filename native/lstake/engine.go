package lstake

import (
	"fmt"
	"math/big"
	"time"

	"lsgate/core/events"
	"lsgate/core/types"
)

// Callback identifiers tag dispatched asynchronous calls so the host can
// route their outcomes back to the right handler.
const (
	CallbackIDStake   uint64 = 1
	CallbackIDForward uint64 = 2
)

// ReplyOn selects which outcomes of a dispatched call are reported back.
type ReplyOn uint8

const (
	ReplyOnSuccess ReplyOn = iota
	ReplyAlways
)

// StakeMsg describes the asynchronous liquid-staking call: it debits Amount
// of Denom from the vault and later credits the derived liquid-staked denom.
type StakeMsg struct {
	Delegator  [20]byte
	Denom      string
	Amount     *big.Int
	CallbackID uint64
	ReplyOn    ReplyOn
}

// ForwardMsg describes the asynchronous second-hop transfer of minted
// liquid-staked tokens. Deadline is a unix timestamp in seconds the external
// channel must honour.
type ForwardMsg struct {
	Channel    string
	Sender     [20]byte
	Receiver   [20]byte
	Denom      string
	Amount     *big.Int
	Deadline   int64
	CallbackID uint64
	ReplyOn    ReplyOn
}

// CallbackResult carries the settled outcome of a dispatched call back into
// the engine.
type CallbackResult struct {
	ID  uint64
	Ok  bool
	Err string
}

// BankState exposes the balance reads and payments the engine needs. Balance
// snapshots of the vault's own liquid-staked holdings are how the minted
// amount is measured; the staking module's acknowledgement payload is never
// trusted.
type BankState interface {
	Balance(addr [20]byte, denom string) (*big.Int, error)
	Send(from, to [20]byte, denom string, amount *big.Int) error
}

// Dispatcher hands asynchronous calls to the host. The outcome of each call
// arrives later through HandleStakeCallback or HandleForwardCallback; a
// non-nil error here means the call could not even be submitted.
type Dispatcher interface {
	DispatchStake(msg StakeMsg) error
	DispatchForward(msg ForwardMsg) error
}

type lstakeEvent struct {
	evt *types.Event
}

func (e lstakeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e lstakeEvent) Event() *types.Event { return e.evt }

// Engine wires the liquid-stake orchestration logic with external state, the
// bank, the denom tracer and the asynchronous dispatcher. Each exported
// operation is one host step; the host serialises steps, so the engine never
// runs two of them concurrently.
type Engine struct {
	store      *Store
	bank       BankState
	tracer     DenomTracer
	dispatcher Dispatcher
	emitter    events.Emitter
	self       [20]byte
	nowFn      func() int64
}

// NewEngine creates an engine with a no-op emitter. Callers can override the
// emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the storage backend used by the engine.
func (e *Engine) SetState(state Storage) { e.store = NewStore(state) }

// SetBank configures the bank backend used for balance snapshots and payouts.
func (e *Engine) SetBank(bank BankState) { e.bank = bank }

// SetTracer configures the denom trace lookup.
func (e *Engine) SetTracer(tracer DenomTracer) { e.tracer = tracer }

// SetDispatcher configures the asynchronous call dispatcher.
func (e *Engine) SetDispatcher(d Dispatcher) { e.dispatcher = d }

// SetSelf configures the gateway's own vault address whose balances are
// snapshotted.
func (e *Engine) SetSelf(addr [20]byte) { e.self = addr }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(lstakeEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) requireStore() (*Store, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	return e.store, nil
}

func (e *Engine) requireBank() (BankState, error) {
	if e == nil || e.bank == nil {
		return nil, errNilBank
	}
	return e.bank, nil
}

func (e *Engine) requireDispatcher() (Dispatcher, error) {
	if e == nil || e.dispatcher == nil {
		return nil, errNilDispatcher
	}
	return e.dispatcher, nil
}

func (e *Engine) loadConfig() (Config, error) {
	store, err := e.requireStore()
	if err != nil {
		return Config{}, err
	}
	cfg, ok, err := store.Config()
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Config{}, errNoConfig
	}
	return cfg, nil
}

// Initialize writes the initial configuration. The gateway starts active with
// default timeouts unless overridden later via UpdateConfig.
func (e *Engine) Initialize(admin [20]byte, lsPrefix string, timeouts Timeouts) error {
	store, err := e.requireStore()
	if err != nil {
		return err
	}
	cfg := Config{
		Active:   true,
		LSPrefix: lsPrefix,
		Admin:    admin,
		Timeouts: timeouts,
	}
	sanitized, err := SanitizeConfig(cfg)
	if err != nil {
		return err
	}
	if err := store.PutConfig(sanitized); err != nil {
		return err
	}
	e.emit(NewConfigUpdatedEvent(sanitized))
	return nil
}

// Config returns the current gateway configuration.
func (e *Engine) Config() (Config, error) {
	return e.loadConfig()
}

// Initialized reports whether a configuration has been persisted.
func (e *Engine) Initialized() (bool, error) {
	store, err := e.requireStore()
	if err != nil {
		return false, err
	}
	_, ok, err := store.Config()
	return ok, err
}

// Pending returns the in-flight transaction record, if any.
func (e *Engine) Pending() (*PendingStake, bool, error) {
	store, err := e.requireStore()
	if err != nil {
		return nil, false, err
	}
	return store.Pending()
}

// LiquidStake is the deposit entry point. It validates preconditions,
// resolves the liquid-staked denom, snapshots the vault balance, persists the
// transaction record and dispatches the asynchronous staking call. No payout
// happens here: the minted amount is unknown until the stake settles.
func (e *Engine) LiquidStake(sender, receiver [20]byte, transferChannel string, recovery *[20]byte, funds []Coin) (*PendingStake, error) {
	store, err := e.requireStore()
	if err != nil {
		return nil, err
	}
	bank, err := e.requireBank()
	if err != nil {
		return nil, err
	}
	dispatcher, err := e.requireDispatcher()
	if err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Active {
		return nil, ErrNotActive
	}
	if len(funds) == 0 {
		return nil, ErrNoFunds
	}
	if len(funds) > 1 {
		return nil, ErrTooManyFunds
	}
	deposit := funds[0]
	if deposit.Amount == nil || deposit.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if existing, ok, err := store.Pending(); err != nil {
		return nil, err
	} else if ok && existing.Pending() {
		return nil, ErrStakePending
	}

	baseDenom, lsDenom, err := ResolveLSDenom(e.tracer, cfg.LSPrefix, deposit.Denom)
	if err != nil {
		return nil, err
	}

	balanceBefore, err := bank.Balance(e.self, lsDenom)
	if err != nil {
		return nil, fmt.Errorf("lstake: snapshot balance: %w", err)
	}

	record := &PendingStake{
		Sender:          sender,
		Receiver:        receiver,
		TransferChannel: transferChannel,
		IBCDenom:        deposit.Denom,
		LSDenom:         lsDenom,
		BalanceBefore:   balanceBefore,
		BalanceChange:   big.NewInt(0),
		RecoveryAccount: recovery,
		Status:          StakeAwaitingStake,
	}
	if err := store.PutPending(record); err != nil {
		return nil, err
	}

	msg := StakeMsg{
		Delegator:  e.self,
		Denom:      deposit.Denom,
		Amount:     new(big.Int).Set(deposit.Amount),
		CallbackID: CallbackIDStake,
		ReplyOn:    ReplyOnSuccess,
	}
	if err := dispatcher.DispatchStake(msg); err != nil {
		// Nothing has left the vault yet, so the step unwinds cleanly.
		if delErr := store.DeletePending(); delErr != nil {
			return nil, fmt.Errorf("lstake: dispatch stake: %v (cleanup: %w)", err, delErr)
		}
		return nil, fmt.Errorf("lstake: dispatch stake: %w", err)
	}

	e.emit(NewStakeInitiatedEvent(record, baseDenom, deposit.Amount))
	return record.Clone(), nil
}

// HandleStakeCallback runs when the staking call settles. It measures the
// minted amount via a second balance snapshot and either pays the receiver
// directly, leaves the tokens for a Claim, or dispatches the second-hop
// transfer.
func (e *Engine) HandleStakeCallback(res CallbackResult) error {
	store, err := e.requireStore()
	if err != nil {
		return err
	}
	bank, err := e.requireBank()
	if err != nil {
		return err
	}
	if res.ID != CallbackIDStake {
		return fmt.Errorf("lstake: unexpected callback id %d", res.ID)
	}
	if !res.Ok {
		// A failed stake aborts the whole transaction; drop the record so no
		// orphaned state survives the step.
		if err := store.DeletePending(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrSubcall, res.Err)
	}

	record, ok, err := store.Pending()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPendingStake
	}
	if record.Status != StakeAwaitingStake {
		return fmt.Errorf("lstake: stake callback in status %s", record.Status)
	}

	balanceAfter, err := bank.Balance(e.self, record.LSDenom)
	if err != nil {
		return fmt.Errorf("lstake: snapshot balance: %w", err)
	}
	if balanceAfter.Cmp(record.BalanceBefore) < 0 {
		return fmt.Errorf("%w: %s -> %s", ErrBalanceUnderflow, record.BalanceBefore, balanceAfter)
	}
	record.BalanceChange = new(big.Int).Sub(balanceAfter, record.BalanceBefore)
	if err := store.PutPending(record); err != nil {
		return err
	}

	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}

	if cfg.PayoutMode == PayoutClaim {
		// Pull-based completion: the receiver collects via Claim.
		record.Status = StakeCompleted
		if err := store.PutPending(record); err != nil {
			return err
		}
		e.emit(NewStakeMintedEvent(record))
		return nil
	}

	if record.TransferChannel == "" {
		if err := bank.Send(e.self, record.Receiver, record.LSDenom, record.BalanceChange); err != nil {
			return fmt.Errorf("lstake: payout: %w", err)
		}
		record.Status = StakeCompleted
		e.emit(NewStakeMintedEvent(record))
		return store.DeletePending()
	}

	dispatcher, err := e.requireDispatcher()
	if err != nil {
		return err
	}
	// Worst-case delivery: the forward may itself be wrapped in an ICA round
	// trip, so the deadline covers both windows.
	deadline := e.now() + int64(cfg.Timeouts.ICATimeout) + int64(cfg.Timeouts.TransferTimeout)
	replyOn := ReplyAlways
	if cfg.CallbackPolicy == CallbackOnSuccess {
		replyOn = ReplyOnSuccess
	}
	msg := ForwardMsg{
		Channel:    record.TransferChannel,
		Sender:     e.self,
		Receiver:   record.Receiver,
		Denom:      record.LSDenom,
		Amount:     new(big.Int).Set(record.BalanceChange),
		Deadline:   deadline,
		CallbackID: CallbackIDForward,
		ReplyOn:    replyOn,
	}
	record.Status = StakeAwaitingForward
	if err := store.PutPending(record); err != nil {
		return err
	}
	if err := dispatcher.DispatchForward(msg); err != nil {
		// The stake already settled, so this cannot roll back; compensate as
		// if the forward had failed.
		return e.compensate(record, fmt.Errorf("lstake: dispatch forward: %w", err))
	}
	e.emit(NewStakeMintedEvent(record))
	e.emit(NewForwardDispatchedEvent(record, deadline))
	return nil
}

// HandleForwardCallback runs when the second-hop transfer settles. Success
// clears the record; failure pays the minted amount to the recovery account.
func (e *Engine) HandleForwardCallback(res CallbackResult) error {
	store, err := e.requireStore()
	if err != nil {
		return err
	}
	if res.ID != CallbackIDForward {
		return fmt.Errorf("lstake: unexpected callback id %d", res.ID)
	}

	if res.Ok {
		record, ok, err := store.Pending()
		if err != nil {
			return err
		}
		if err := store.DeletePending(); err != nil {
			return err
		}
		if ok {
			record.Status = StakeForwarded
			e.emit(NewForwardCompletedEvent(record))
		}
		return nil
	}

	record, ok, err := store.Pending()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPendingStake
	}
	return e.compensate(record, fmt.Errorf("%w: %s", ErrSubcall, res.Err))
}

// compensate settles a failed forward: the record is deleted and the minted
// amount paid to the recovery account. Without a recovery account the tokens
// stay stranded in the vault until an admin intervenes.
func (e *Engine) compensate(record *PendingStake, cause error) error {
	store, err := e.requireStore()
	if err != nil {
		return err
	}
	bank, err := e.requireBank()
	if err != nil {
		return err
	}
	if err := store.DeletePending(); err != nil {
		return err
	}
	if record.RecoveryAccount == nil {
		record.Status = StakeStranded
		e.emit(NewStakeStrandedEvent(record))
		return fmt.Errorf("%w (forward: %v)", ErrInvalidRecoveryAddress, cause)
	}
	recovery := *record.RecoveryAccount
	if err := bank.Send(e.self, recovery, record.LSDenom, record.BalanceChange); err != nil {
		return fmt.Errorf("lstake: refund: %w", err)
	}
	record.Status = StakeRefunded
	e.emit(NewStakeRefundedEvent(record, recovery))
	return nil
}

// Claim lets the recorded receiver pull the minted tokens instead of having
// them pushed. The amount owed is measured again via balance diff at claim
// time.
func (e *Engine) Claim(caller [20]byte) (*big.Int, error) {
	store, err := e.requireStore()
	if err != nil {
		return nil, err
	}
	bank, err := e.requireBank()
	if err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Active {
		return nil, ErrNotActive
	}
	record, ok, err := store.Pending()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoPendingStake
	}
	if record.Receiver != caller {
		return nil, ErrUnauthorized
	}
	balance, err := bank.Balance(e.self, record.LSDenom)
	if err != nil {
		return nil, fmt.Errorf("lstake: snapshot balance: %w", err)
	}
	if balance.Cmp(record.BalanceBefore) <= 0 {
		return nil, ErrNoClaimableTokens
	}
	amount := new(big.Int).Sub(balance, record.BalanceBefore)
	if err := bank.Send(e.self, caller, record.LSDenom, amount); err != nil {
		return nil, fmt.Errorf("lstake: claim payout: %w", err)
	}
	if err := store.DeletePending(); err != nil {
		return nil, err
	}
	e.emit(NewStakeClaimedEvent(record, amount))
	return amount, nil
}

// ConfigUpdate carries the optional fields of an admin configuration change.
// Nil fields are left untouched.
type ConfigUpdate struct {
	Active         *bool
	LSPrefix       *string
	Timeouts       *Timeouts
	CallbackPolicy *ForwardCallbackPolicy
	PayoutMode     *PayoutMode
}

// UpdateConfig applies an admin-only configuration change. Pure state
// mutation, no asynchronous interaction.
func (e *Engine) UpdateConfig(caller [20]byte, update ConfigUpdate) (Config, error) {
	store, err := e.requireStore()
	if err != nil {
		return Config{}, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return Config{}, err
	}
	if cfg.Admin != caller {
		return Config{}, ErrUnauthorized
	}
	if update.Active != nil {
		cfg.Active = *update.Active
	}
	if update.LSPrefix != nil {
		cfg.LSPrefix = *update.LSPrefix
	}
	if update.Timeouts != nil {
		cfg.Timeouts = *update.Timeouts
	}
	if update.CallbackPolicy != nil {
		cfg.CallbackPolicy = *update.CallbackPolicy
	}
	if update.PayoutMode != nil {
		cfg.PayoutMode = *update.PayoutMode
	}
	sanitized, err := SanitizeConfig(cfg)
	if err != nil {
		return Config{}, err
	}
	if err := store.PutConfig(sanitized); err != nil {
		return Config{}, err
	}
	e.emit(NewConfigUpdatedEvent(sanitized))
	return sanitized, nil
}
