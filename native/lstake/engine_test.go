package lstake

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"

	"lsgate/core/events"
	"lsgate/core/types"
)

const (
	testIBCDenom  = "ibc/C8A74ABBE2AF892E15680D916A7C22130585CE5704F9B17A10F184A90D53BECA"
	testBaseDenom = "uatom"
	testLSDenom   = "stk/uatom"
)

type mockState struct {
	data map[string][]byte
}

func newMockState() *mockState {
	return &mockState{data: make(map[string][]byte)}
}

func (m *mockState) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.data[string(key)] = encoded
	return nil
}

func (m *mockState) KVGet(key []byte, out interface{}) (bool, error) {
	encoded, ok := m.data[string(key)]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *mockState) KVDelete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

type send struct {
	from   [20]byte
	to     [20]byte
	denom  string
	amount *big.Int
}

type mockBank struct {
	balances map[string]*big.Int
	sends    []send
	sendErr  error
}

func newMockBank() *mockBank {
	return &mockBank{balances: make(map[string]*big.Int)}
}

func balanceKey(addr [20]byte, denom string) string {
	return string(addr[:]) + "/" + denom
}

func (m *mockBank) setBalance(addr [20]byte, denom string, amount int64) {
	m.balances[balanceKey(addr, denom)] = big.NewInt(amount)
}

func (m *mockBank) Balance(addr [20]byte, denom string) (*big.Int, error) {
	if amount, ok := m.balances[balanceKey(addr, denom)]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

func (m *mockBank) Send(from, to [20]byte, denom string, amount *big.Int) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sends = append(m.sends, send{from: from, to: to, denom: denom, amount: new(big.Int).Set(amount)})
	return nil
}

type mockTracer struct {
	traces map[string]string
}

func (m *mockTracer) DenomTrace(ibcDenom string) (string, bool, error) {
	base, ok := m.traces[ibcDenom]
	return base, ok, nil
}

type mockDispatcher struct {
	stakes     []StakeMsg
	forwards   []ForwardMsg
	stakeErr   error
	forwardErr error
}

func (m *mockDispatcher) DispatchStake(msg StakeMsg) error {
	if m.stakeErr != nil {
		return m.stakeErr
	}
	m.stakes = append(m.stakes, msg)
	return nil
}

func (m *mockDispatcher) DispatchForward(msg ForwardMsg) error {
	if m.forwardErr != nil {
		return m.forwardErr
	}
	m.forwards = append(m.forwards, msg)
	return nil
}

type captureEmitter struct {
	events []*types.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	payload, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	c.events = append(c.events, payload.Event())
}

func (c *captureEmitter) byType(eventType string) *types.Event {
	for _, evt := range c.events {
		if evt.Type == eventType {
			return evt
		}
	}
	return nil
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type testEnv struct {
	engine     *Engine
	state      *mockState
	store      *Store
	bank       *mockBank
	tracer     *mockTracer
	dispatcher *mockDispatcher
	emitter    *captureEmitter
	self       [20]byte
	admin      [20]byte
	sender     [20]byte
	receiver   [20]byte
	now        int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		state:      newMockState(),
		bank:       newMockBank(),
		tracer:     &mockTracer{traces: map[string]string{testIBCDenom: testBaseDenom}},
		dispatcher: &mockDispatcher{},
		emitter:    &captureEmitter{},
		self:       newTestAddress(0x01),
		admin:      newTestAddress(0x02),
		sender:     newTestAddress(0x03),
		receiver:   newTestAddress(0x04),
		now:        1_700_000_000,
	}
	env.store = NewStore(env.state)
	engine := NewEngine()
	engine.SetState(env.state)
	engine.SetBank(env.bank)
	engine.SetTracer(env.tracer)
	engine.SetDispatcher(env.dispatcher)
	engine.SetEmitter(env.emitter)
	engine.SetSelf(env.self)
	engine.SetNowFunc(func() int64 { return env.now })
	env.engine = engine
	if err := engine.Initialize(env.admin, "stk/", Timeouts{}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return env
}

func (env *testEnv) setConfig(t *testing.T, mutate func(*Config)) {
	t.Helper()
	cfg, ok, err := env.store.Config()
	if err != nil || !ok {
		t.Fatalf("load config: ok=%v err=%v", ok, err)
	}
	mutate(&cfg)
	if err := env.store.PutConfig(cfg); err != nil {
		t.Fatalf("put config: %v", err)
	}
}

func (env *testEnv) deposit() []Coin {
	return []Coin{{Denom: testIBCDenom, Amount: big.NewInt(2000)}}
}

func (env *testEnv) mustPending(t *testing.T) *PendingStake {
	t.Helper()
	record, ok, err := env.store.Pending()
	if err != nil {
		t.Fatalf("load pending: %v", err)
	}
	if !ok {
		t.Fatalf("expected a pending stake record")
	}
	return record
}

func (env *testEnv) requireNoPending(t *testing.T) {
	t.Helper()
	_, ok, err := env.store.Pending()
	if err != nil {
		t.Fatalf("load pending: %v", err)
	}
	if ok {
		t.Fatalf("expected no pending stake record")
	}
}

func TestLiquidStakeDispatchesStakeCall(t *testing.T) {
	env := newTestEnv(t)
	env.bank.setBalance(env.self, testLSDenom, 1000)

	record, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit())
	if err != nil {
		t.Fatalf("liquid stake: %v", err)
	}
	if record.LSDenom != testLSDenom {
		t.Fatalf("ls denom = %s, want %s", record.LSDenom, testLSDenom)
	}
	if record.BalanceBefore.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("balance before = %s, want 1000", record.BalanceBefore)
	}
	if record.Status != StakeAwaitingStake {
		t.Fatalf("status = %s, want awaiting_stake", record.Status)
	}

	stored := env.mustPending(t)
	if stored.BalanceBefore.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("stored balance before = %s, want 1000", stored.BalanceBefore)
	}
	if stored.BalanceChange.Sign() != 0 {
		t.Fatalf("stored balance change = %s, want 0", stored.BalanceChange)
	}

	if len(env.dispatcher.stakes) != 1 {
		t.Fatalf("dispatched %d stake calls, want 1", len(env.dispatcher.stakes))
	}
	msg := env.dispatcher.stakes[0]
	if msg.Denom != testIBCDenom {
		t.Fatalf("stake denom = %s, want %s", msg.Denom, testIBCDenom)
	}
	if msg.Amount.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("stake amount = %s, want 2000", msg.Amount)
	}
	if msg.CallbackID != CallbackIDStake {
		t.Fatalf("callback id = %d, want %d", msg.CallbackID, CallbackIDStake)
	}
	if msg.ReplyOn != ReplyOnSuccess {
		t.Fatalf("reply on = %d, want on success", msg.ReplyOn)
	}
	if msg.Delegator != env.self {
		t.Fatalf("delegator is not the vault address")
	}

	evt := env.emitter.byType(EventTypeStakeInitiated)
	if evt == nil {
		t.Fatalf("missing %s event", EventTypeStakeInitiated)
	}
	if evt.Attributes["nativeBaseDenom"] != testBaseDenom {
		t.Fatalf("base denom attr = %s, want %s", evt.Attributes["nativeBaseDenom"], testBaseDenom)
	}
	if evt.Attributes["lsTokenDenom"] != testLSDenom {
		t.Fatalf("ls denom attr = %s, want %s", evt.Attributes["lsTokenDenom"], testLSDenom)
	}
	if evt.Attributes["nativeAmount"] != "2000" {
		t.Fatalf("amount attr = %s, want 2000", evt.Attributes["nativeAmount"])
	}
}

func TestLiquidStakePreconditions(t *testing.T) {
	t.Run("not active", func(t *testing.T) {
		env := newTestEnv(t)
		env.setConfig(t, func(cfg *Config) { cfg.Active = false })
		if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit()); !errors.Is(err, ErrNotActive) {
			t.Fatalf("err = %v, want ErrNotActive", err)
		}
	})
	t.Run("no funds", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, nil); !errors.Is(err, ErrNoFunds) {
			t.Fatalf("err = %v, want ErrNoFunds", err)
		}
	})
	t.Run("too many funds", func(t *testing.T) {
		env := newTestEnv(t)
		funds := []Coin{
			{Denom: testIBCDenom, Amount: big.NewInt(1)},
			{Denom: "ibc/other", Amount: big.NewInt(1)},
		}
		if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, funds); !errors.Is(err, ErrTooManyFunds) {
			t.Fatalf("err = %v, want ErrTooManyFunds", err)
		}
	})
	t.Run("zero amount", func(t *testing.T) {
		env := newTestEnv(t)
		funds := []Coin{{Denom: testIBCDenom, Amount: big.NewInt(0)}}
		if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, funds); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("err = %v, want ErrInvalidAmount", err)
		}
	})
	t.Run("unknown denom", func(t *testing.T) {
		env := newTestEnv(t)
		funds := []Coin{{Denom: "ibc/unknown", Amount: big.NewInt(5)}}
		if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, funds); !errors.Is(err, ErrInvalidDenom) {
			t.Fatalf("err = %v, want ErrInvalidDenom", err)
		}
	})
	t.Run("already in flight", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit()); err != nil {
			t.Fatalf("first liquid stake: %v", err)
		}
		if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit()); !errors.Is(err, ErrStakePending) {
			t.Fatalf("err = %v, want ErrStakePending", err)
		}
	})
	t.Run("nothing persists on dispatch failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.dispatcher.stakeErr = fmt.Errorf("bridge unavailable")
		if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit()); err == nil {
			t.Fatalf("expected dispatch error")
		}
		env.requireNoPending(t)
	})
}

func TestStakeCallbackDirectPayout(t *testing.T) {
	env := newTestEnv(t)
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}

	env.bank.setBalance(env.self, testLSDenom, 2000)
	if err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true}); err != nil {
		t.Fatalf("stake callback: %v", err)
	}

	if len(env.bank.sends) != 1 {
		t.Fatalf("recorded %d sends, want 1", len(env.bank.sends))
	}
	payout := env.bank.sends[0]
	if payout.to != env.receiver {
		t.Fatalf("payout went to the wrong account")
	}
	if payout.denom != testLSDenom {
		t.Fatalf("payout denom = %s, want %s", payout.denom, testLSDenom)
	}
	if payout.amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("payout amount = %s, want 1000", payout.amount)
	}
	env.requireNoPending(t)

	evt := env.emitter.byType(EventTypeStakeMinted)
	if evt == nil {
		t.Fatalf("missing %s event", EventTypeStakeMinted)
	}
	if evt.Attributes["mintedLstAmount"] != "1000" {
		t.Fatalf("minted attr = %s, want 1000", evt.Attributes["mintedLstAmount"])
	}
}

func TestStakeCallbackDispatchesForward(t *testing.T) {
	env := newTestEnv(t)
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "channel-0", &env.sender, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}

	env.bank.setBalance(env.self, testLSDenom, 2000)
	if err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true}); err != nil {
		t.Fatalf("stake callback: %v", err)
	}

	if len(env.bank.sends) != 0 {
		t.Fatalf("no direct payout expected, got %d sends", len(env.bank.sends))
	}
	if len(env.dispatcher.forwards) != 1 {
		t.Fatalf("dispatched %d forwards, want 1", len(env.dispatcher.forwards))
	}
	msg := env.dispatcher.forwards[0]
	if msg.Channel != "channel-0" {
		t.Fatalf("channel = %s, want channel-0", msg.Channel)
	}
	if msg.Amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("forward amount = %s, want 1000", msg.Amount)
	}
	if msg.Denom != testLSDenom {
		t.Fatalf("forward denom = %s, want %s", msg.Denom, testLSDenom)
	}
	wantDeadline := env.now + 18_000 + 18_000
	if msg.Deadline != wantDeadline {
		t.Fatalf("deadline = %d, want %d", msg.Deadline, wantDeadline)
	}
	if msg.ReplyOn != ReplyAlways {
		t.Fatalf("reply on = %d, want always", msg.ReplyOn)
	}
	if msg.CallbackID != CallbackIDForward {
		t.Fatalf("callback id = %d, want %d", msg.CallbackID, CallbackIDForward)
	}

	record := env.mustPending(t)
	if record.Status != StakeAwaitingForward {
		t.Fatalf("status = %s, want awaiting_forward", record.Status)
	}
	if record.BalanceChange.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("balance change = %s, want 1000", record.BalanceChange)
	}
}

func TestStakeCallbackForwardPolicyOnSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.setConfig(t, func(cfg *Config) { cfg.CallbackPolicy = CallbackOnSuccess })
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "channel-0", nil, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}

	env.bank.setBalance(env.self, testLSDenom, 2000)
	if err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true}); err != nil {
		t.Fatalf("stake callback: %v", err)
	}
	if len(env.dispatcher.forwards) != 1 {
		t.Fatalf("dispatched %d forwards, want 1", len(env.dispatcher.forwards))
	}
	if env.dispatcher.forwards[0].ReplyOn != ReplyOnSuccess {
		t.Fatalf("reply on = %d, want on success", env.dispatcher.forwards[0].ReplyOn)
	}
}

func TestStakeCallbackFailureAbortsTransaction(t *testing.T) {
	env := newTestEnv(t)
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}

	err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: false, Err: "out of gas"})
	if !errors.Is(err, ErrSubcall) {
		t.Fatalf("err = %v, want ErrSubcall", err)
	}
	env.requireNoPending(t)
	if len(env.bank.sends) != 0 {
		t.Fatalf("no payout expected after aborted stake")
	}
}

func TestStakeCallbackMissingRecord(t *testing.T) {
	env := newTestEnv(t)
	err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true})
	if !errors.Is(err, ErrNoPendingStake) {
		t.Fatalf("err = %v, want ErrNoPendingStake", err)
	}
}

func TestStakeCallbackBalanceUnderflow(t *testing.T) {
	env := newTestEnv(t)
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}

	env.bank.setBalance(env.self, testLSDenom, 500)
	err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true})
	if !errors.Is(err, ErrBalanceUnderflow) {
		t.Fatalf("err = %v, want ErrBalanceUnderflow", err)
	}
}

func TestForwardCallbackSuccessDeletesRecord(t *testing.T) {
	env := newTestEnv(t)
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "channel-0", &env.sender, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}
	env.bank.setBalance(env.self, testLSDenom, 2000)
	if err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true}); err != nil {
		t.Fatalf("stake callback: %v", err)
	}

	if err := env.engine.HandleForwardCallback(CallbackResult{ID: CallbackIDForward, Ok: true}); err != nil {
		t.Fatalf("forward callback: %v", err)
	}
	env.requireNoPending(t)
	if len(env.bank.sends) != 0 {
		t.Fatalf("no payout expected on forward success")
	}
	if env.emitter.byType(EventTypeForwardCompleted) == nil {
		t.Fatalf("missing %s event", EventTypeForwardCompleted)
	}
}

func TestForwardCallbackFailureRefundsRecovery(t *testing.T) {
	env := newTestEnv(t)
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "channel-0", &env.sender, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}
	env.bank.setBalance(env.self, testLSDenom, 2000)
	if err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true}); err != nil {
		t.Fatalf("stake callback: %v", err)
	}

	if err := env.engine.HandleForwardCallback(CallbackResult{ID: CallbackIDForward, Ok: false, Err: "timeout"}); err != nil {
		t.Fatalf("forward callback: %v", err)
	}
	if len(env.bank.sends) != 1 {
		t.Fatalf("recorded %d sends, want 1", len(env.bank.sends))
	}
	refund := env.bank.sends[0]
	if refund.to != env.sender {
		t.Fatalf("refund went to the wrong account")
	}
	if refund.amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("refund amount = %s, want 1000", refund.amount)
	}
	if refund.denom != testLSDenom {
		t.Fatalf("refund denom = %s, want %s", refund.denom, testLSDenom)
	}
	env.requireNoPending(t)

	evt := env.emitter.byType(EventTypeStakeRefunded)
	if evt == nil {
		t.Fatalf("missing %s event", EventTypeStakeRefunded)
	}
	if evt.Attributes["mintedLstAmount"] != "1000" {
		t.Fatalf("minted attr = %s, want 1000", evt.Attributes["mintedLstAmount"])
	}
}

func TestForwardCallbackFailureWithoutRecovery(t *testing.T) {
	env := newTestEnv(t)
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "channel-0", nil, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}
	env.bank.setBalance(env.self, testLSDenom, 2000)
	if err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true}); err != nil {
		t.Fatalf("stake callback: %v", err)
	}

	err := env.engine.HandleForwardCallback(CallbackResult{ID: CallbackIDForward, Ok: false, Err: "timeout"})
	if !errors.Is(err, ErrInvalidRecoveryAddress) {
		t.Fatalf("err = %v, want ErrInvalidRecoveryAddress", err)
	}
	env.requireNoPending(t)
	if len(env.bank.sends) != 0 {
		t.Fatalf("no payout expected without a recovery account")
	}
	if env.emitter.byType(EventTypeStakeStranded) == nil {
		t.Fatalf("missing %s event", EventTypeStakeStranded)
	}
}

func TestForwardCallbackSuccessWithoutRecord(t *testing.T) {
	env := newTestEnv(t)
	if err := env.engine.HandleForwardCallback(CallbackResult{ID: CallbackIDForward, Ok: true}); err != nil {
		t.Fatalf("forward callback on empty state: %v", err)
	}
}

func TestForwardCallbackFailureWithoutRecord(t *testing.T) {
	env := newTestEnv(t)
	err := env.engine.HandleForwardCallback(CallbackResult{ID: CallbackIDForward, Ok: false, Err: "timeout"})
	if !errors.Is(err, ErrNoPendingStake) {
		t.Fatalf("err = %v, want ErrNoPendingStake", err)
	}
}

func TestForwardDispatchFailureCompensates(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.forwardErr = fmt.Errorf("bridge unavailable")
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "channel-0", &env.sender, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}

	env.bank.setBalance(env.self, testLSDenom, 2000)
	if err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true}); err != nil {
		t.Fatalf("stake callback: %v", err)
	}
	if len(env.bank.sends) != 1 {
		t.Fatalf("recorded %d sends, want 1", len(env.bank.sends))
	}
	if env.bank.sends[0].to != env.sender {
		t.Fatalf("refund went to the wrong account")
	}
	env.requireNoPending(t)
}

func TestClaimPayout(t *testing.T) {
	env := newTestEnv(t)
	env.setConfig(t, func(cfg *Config) { cfg.PayoutMode = PayoutClaim })
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}
	env.bank.setBalance(env.self, testLSDenom, 2000)
	if err := env.engine.HandleStakeCallback(CallbackResult{ID: CallbackIDStake, Ok: true}); err != nil {
		t.Fatalf("stake callback: %v", err)
	}
	record := env.mustPending(t)
	if record.Status != StakeCompleted {
		t.Fatalf("status = %s, want completed", record.Status)
	}
	if len(env.bank.sends) != 0 {
		t.Fatalf("claim mode must not auto-pay")
	}

	t.Run("wrong caller", func(t *testing.T) {
		if _, err := env.engine.Claim(env.sender); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("err = %v, want ErrUnauthorized", err)
		}
	})

	amount, err := env.engine.Claim(env.receiver)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("claimed = %s, want 1000", amount)
	}
	if len(env.bank.sends) != 1 {
		t.Fatalf("recorded %d sends, want 1", len(env.bank.sends))
	}
	if env.bank.sends[0].to != env.receiver {
		t.Fatalf("claim payout went to the wrong account")
	}
	env.requireNoPending(t)

	t.Run("nothing left to claim", func(t *testing.T) {
		if _, err := env.engine.Claim(env.receiver); !errors.Is(err, ErrNoPendingStake) {
			t.Fatalf("err = %v, want ErrNoPendingStake", err)
		}
	})
}

func TestClaimNoBalanceIncrease(t *testing.T) {
	env := newTestEnv(t)
	env.setConfig(t, func(cfg *Config) { cfg.PayoutMode = PayoutClaim })
	env.bank.setBalance(env.self, testLSDenom, 1000)
	if _, err := env.engine.LiquidStake(env.sender, env.receiver, "", nil, env.deposit()); err != nil {
		t.Fatalf("liquid stake: %v", err)
	}
	if _, err := env.engine.Claim(env.receiver); !errors.Is(err, ErrNoClaimableTokens) {
		t.Fatalf("err = %v, want ErrNoClaimableTokens", err)
	}
}

func TestUpdateConfig(t *testing.T) {
	env := newTestEnv(t)

	t.Run("unauthorized", func(t *testing.T) {
		active := false
		if _, err := env.engine.UpdateConfig(env.sender, ConfigUpdate{Active: &active}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("err = %v, want ErrUnauthorized", err)
		}
	})

	active := false
	prefix := "newprefix/"
	timeouts := Timeouts{ICATimeout: 10_000, TransferTimeout: 10_000}
	cfg, err := env.engine.UpdateConfig(env.admin, ConfigUpdate{
		Active:   &active,
		LSPrefix: &prefix,
		Timeouts: &timeouts,
	})
	if err != nil {
		t.Fatalf("update config: %v", err)
	}
	if cfg.Active {
		t.Fatalf("config still active")
	}
	if cfg.LSPrefix != "newprefix/" {
		t.Fatalf("prefix = %s, want newprefix/", cfg.LSPrefix)
	}
	if cfg.Timeouts.ICATimeout != 10_000 || cfg.Timeouts.TransferTimeout != 10_000 {
		t.Fatalf("timeouts = %+v, want 10000/10000", cfg.Timeouts)
	}

	stored, err := env.engine.Config()
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if stored.Active || stored.LSPrefix != "newprefix/" {
		t.Fatalf("persisted config = %+v", stored)
	}
}

func TestDefaultTimeouts(t *testing.T) {
	env := newTestEnv(t)
	cfg, err := env.engine.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Timeouts.ICATimeout != DefaultTimeoutSeconds {
		t.Fatalf("ica timeout = %d, want %d", cfg.Timeouts.ICATimeout, DefaultTimeoutSeconds)
	}
	if cfg.Timeouts.TransferTimeout != DefaultTimeoutSeconds {
		t.Fatalf("transfer timeout = %d, want %d", cfg.Timeouts.TransferTimeout, DefaultTimeoutSeconds)
	}
	if !cfg.Active {
		t.Fatalf("gateway should start active")
	}
	if cfg.CallbackPolicy != CallbackAlways {
		t.Fatalf("callback policy = %s, want always", cfg.CallbackPolicy)
	}
	if cfg.PayoutMode != PayoutPush {
		t.Fatalf("payout mode = %s, want push", cfg.PayoutMode)
	}
}
