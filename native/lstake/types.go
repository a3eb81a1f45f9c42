package lstake

import (
	"math/big"
	"strings"
)

// StakeStatus tags the lifecycle state of the in-flight liquid-stake
// transaction. The explicit tag makes the terminal outcomes (completed,
// refunded, stranded) independently observable instead of being implied by
// control flow.
type StakeStatus uint8

const (
	StakeAwaitingStake StakeStatus = iota
	StakeAwaitingForward
	StakeCompleted
	StakeForwarded
	StakeRefunded
	StakeStranded
)

// Valid reports whether the status value is within the supported range.
func (s StakeStatus) Valid() bool {
	switch s {
	case StakeAwaitingStake, StakeAwaitingForward, StakeCompleted, StakeForwarded, StakeRefunded, StakeStranded:
		return true
	default:
		return false
	}
}

func (s StakeStatus) String() string {
	switch s {
	case StakeAwaitingStake:
		return "awaiting_stake"
	case StakeAwaitingForward:
		return "awaiting_forward"
	case StakeCompleted:
		return "completed"
	case StakeForwarded:
		return "forwarded"
	case StakeRefunded:
		return "refunded"
	case StakeStranded:
		return "stranded"
	default:
		return "unknown"
	}
}

// ForwardCallbackPolicy selects which outcomes of the second-hop transfer are
// reported back to the gateway. CallbackAlways enables the compensating
// refund; CallbackOnSuccess reproduces the variant where the failure branch
// never fires and stuck transfers need manual recovery.
type ForwardCallbackPolicy uint8

const (
	CallbackAlways ForwardCallbackPolicy = iota
	CallbackOnSuccess
)

func (p ForwardCallbackPolicy) Valid() bool {
	return p == CallbackAlways || p == CallbackOnSuccess
}

func (p ForwardCallbackPolicy) String() string {
	switch p {
	case CallbackAlways:
		return "always"
	case CallbackOnSuccess:
		return "on_success"
	default:
		return "unknown"
	}
}

// PayoutMode selects how minted liquid-staked tokens reach the receiver:
// pushed automatically when the stake settles, or pulled by the receiver via
// Claim.
type PayoutMode uint8

const (
	PayoutPush PayoutMode = iota
	PayoutClaim
)

func (m PayoutMode) Valid() bool {
	return m == PayoutPush || m == PayoutClaim
}

func (m PayoutMode) String() string {
	switch m {
	case PayoutPush:
		return "push"
	case PayoutClaim:
		return "claim"
	default:
		return "unknown"
	}
}

// Coin pairs an asset identifier with an amount, mirroring the funds attached
// to a deposit.
type Coin struct {
	Denom  string
	Amount *big.Int
}

// Timeouts bounds the validity window of the outgoing second-hop transfer.
// Both values are seconds.
type Timeouts struct {
	ICATimeout      uint64
	TransferTimeout uint64
}

// DefaultTimeoutSeconds is applied to both timeout parameters when the
// gateway is initialised without explicit values.
const DefaultTimeoutSeconds uint64 = 18_000

// Config captures the gateway configuration persisted in its own slot.
type Config struct {
	Active         bool
	LSPrefix       string
	Admin          [20]byte
	Timeouts       Timeouts
	CallbackPolicy ForwardCallbackPolicy
	PayoutMode     PayoutMode
}

// PendingStake is the single unit of mutable cross-step state: the record of
// the liquid-stake transaction currently in flight. BalanceChange is computed
// from balance snapshots, never supplied by a caller.
type PendingStake struct {
	Sender          [20]byte
	Receiver        [20]byte
	TransferChannel string
	IBCDenom        string
	LSDenom         string
	BalanceBefore   *big.Int
	BalanceChange   *big.Int
	RecoveryAccount *[20]byte
	Status          StakeStatus
}

// Clone returns a deep copy of the record so callers can safely mutate the
// copy without affecting the stored instance.
func (p *PendingStake) Clone() *PendingStake {
	if p == nil {
		return nil
	}
	clone := *p
	if p.BalanceBefore != nil {
		clone.BalanceBefore = new(big.Int).Set(p.BalanceBefore)
	} else {
		clone.BalanceBefore = big.NewInt(0)
	}
	if p.BalanceChange != nil {
		clone.BalanceChange = new(big.Int).Set(p.BalanceChange)
	} else {
		clone.BalanceChange = big.NewInt(0)
	}
	if p.RecoveryAccount != nil {
		recovery := *p.RecoveryAccount
		clone.RecoveryAccount = &recovery
	}
	return &clone
}

// Pending reports whether the record still blocks a new deposit: either an
// asynchronous step is outstanding, or the minted tokens are waiting to be
// claimed. Accepting a new deposit in these states would clobber the record
// and misattribute the snapshots.
func (p *PendingStake) Pending() bool {
	if p == nil {
		return false
	}
	switch p.Status {
	case StakeAwaitingStake, StakeAwaitingForward, StakeCompleted:
		return true
	default:
		return false
	}
}

// SanitizeConfig validates and normalises a configuration value, returning a
// copy with a trimmed prefix. The prefix must be non-empty: without it the
// liquid-staked denom would collide with the base denom.
func SanitizeConfig(c Config) (Config, error) {
	c.LSPrefix = strings.TrimSpace(c.LSPrefix)
	if c.LSPrefix == "" {
		return Config{}, errEmptyPrefix
	}
	if !c.CallbackPolicy.Valid() {
		return Config{}, errInvalidPolicy
	}
	if !c.PayoutMode.Valid() {
		return Config{}, errInvalidPayoutMode
	}
	if c.Timeouts.ICATimeout == 0 {
		c.Timeouts.ICATimeout = DefaultTimeoutSeconds
	}
	if c.Timeouts.TransferTimeout == 0 {
		c.Timeouts.TransferTimeout = DefaultTimeoutSeconds
	}
	return c, nil
}
