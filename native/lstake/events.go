package lstake

import (
	"math/big"
	"strconv"

	"lsgate/core/types"
	"lsgate/crypto"
)

const (
	EventTypeStakeInitiated    = "lstake.initiated"
	EventTypeStakeMinted       = "lstake.minted"
	EventTypeForwardDispatched = "lstake.forward_dispatched"
	EventTypeForwardCompleted  = "lstake.forward_completed"
	EventTypeStakeRefunded     = "lstake.refunded"
	EventTypeStakeStranded     = "lstake.stranded"
	EventTypeStakeClaimed      = "lstake.claimed"
	EventTypeConfigUpdated     = "lstake.config_updated"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.LSGPrefix, addr[:]).String()
}

// NewStakeInitiatedEvent returns the canonical payload emitted when a deposit
// is accepted and the staking call dispatched.
func NewStakeInitiatedEvent(p *PendingStake, baseDenom string, amount *big.Int) *types.Event {
	if p == nil {
		return nil
	}
	attrs := map[string]string{
		"action":          "liquid_stake",
		"sender":          formatAddress(p.Sender),
		"nativeAmount":    formatAmount(amount),
		"nativeIbcDenom":  p.IBCDenom,
		"nativeBaseDenom": baseDenom,
		"lsTokenDenom":    p.LSDenom,
		"receiver":        formatAddress(p.Receiver),
	}
	return &types.Event{Type: EventTypeStakeInitiated, Attributes: attrs}
}

// NewStakeMintedEvent returns the payload emitted once the stake settles and
// the minted amount has been measured.
func NewStakeMintedEvent(p *PendingStake) *types.Event {
	if p == nil {
		return nil
	}
	attrs := map[string]string{
		"mintedLstAmount": formatAmount(p.BalanceChange),
		"lsTokenDenom":    p.LSDenom,
		"receiver":        formatAddress(p.Receiver),
	}
	return &types.Event{Type: EventTypeStakeMinted, Attributes: attrs}
}

// NewForwardDispatchedEvent returns the payload emitted when the minted
// tokens are handed to the second-hop transfer.
func NewForwardDispatchedEvent(p *PendingStake, deadline int64) *types.Event {
	if p == nil {
		return nil
	}
	attrs := map[string]string{
		"mintedLstAmount": formatAmount(p.BalanceChange),
		"lsTokenDenom":    p.LSDenom,
		"receiver":        formatAddress(p.Receiver),
		"transferChannel": p.TransferChannel,
		"timeout":         strconv.FormatInt(deadline, 10),
	}
	return &types.Event{Type: EventTypeForwardDispatched, Attributes: attrs}
}

// NewForwardCompletedEvent returns the payload emitted when the second hop
// settles successfully.
func NewForwardCompletedEvent(p *PendingStake) *types.Event {
	attrs := map[string]string{}
	if p != nil {
		attrs["mintedLstAmount"] = formatAmount(p.BalanceChange)
		attrs["receiver"] = formatAddress(p.Receiver)
		attrs["transferChannel"] = p.TransferChannel
	}
	return &types.Event{Type: EventTypeForwardCompleted, Attributes: attrs}
}

// NewStakeRefundedEvent returns the payload emitted when a failed forward is
// compensated by paying the minted amount to the recovery account.
func NewStakeRefundedEvent(p *PendingStake, recovery [20]byte) *types.Event {
	if p == nil {
		return nil
	}
	attrs := map[string]string{
		"mintedLstAmount": formatAmount(p.BalanceChange),
		"lsTokenDenom":    p.LSDenom,
		"receiver":        formatAddress(p.Receiver),
		"sender":          formatAddress(recovery),
	}
	return &types.Event{Type: EventTypeStakeRefunded, Attributes: attrs}
}

// NewStakeStrandedEvent returns the payload emitted when a failed forward has
// no recovery account and the minted tokens stay in the vault.
func NewStakeStrandedEvent(p *PendingStake) *types.Event {
	if p == nil {
		return nil
	}
	attrs := map[string]string{
		"mintedLstAmount": formatAmount(p.BalanceChange),
		"lsTokenDenom":    p.LSDenom,
		"receiver":        formatAddress(p.Receiver),
	}
	return &types.Event{Type: EventTypeStakeStranded, Attributes: attrs}
}

// NewStakeClaimedEvent returns the payload emitted when the receiver pulls
// the minted tokens via Claim.
func NewStakeClaimedEvent(p *PendingStake, amount *big.Int) *types.Event {
	if p == nil {
		return nil
	}
	attrs := map[string]string{
		"action":       "claim",
		"amount":       formatAmount(amount),
		"lsTokenDenom": p.LSDenom,
		"receiver":     formatAddress(p.Receiver),
	}
	return &types.Event{Type: EventTypeStakeClaimed, Attributes: attrs}
}

// NewConfigUpdatedEvent returns the payload emitted after an admin
// configuration change.
func NewConfigUpdatedEvent(cfg Config) *types.Event {
	attrs := map[string]string{
		"method":          "update_config",
		"active":          strconv.FormatBool(cfg.Active),
		"lsPrefix":        cfg.LSPrefix,
		"icaTimeout":      strconv.FormatUint(cfg.Timeouts.ICATimeout, 10),
		"transferTimeout": strconv.FormatUint(cfg.Timeouts.TransferTimeout, 10),
		"callbackPolicy":  cfg.CallbackPolicy.String(),
		"payoutMode":      cfg.PayoutMode.String(),
	}
	return &types.Event{Type: EventTypeConfigUpdated, Attributes: attrs}
}
