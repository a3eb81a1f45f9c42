package lstake

import "errors"

var (
	// ErrNotActive rejects every operation while the gateway is disabled.
	ErrNotActive = errors.New("lstake: not active")
	// ErrNoFunds rejects a deposit with no attached asset.
	ErrNoFunds = errors.New("lstake: no funds attached")
	// ErrTooManyFunds rejects a deposit attaching more than one denomination.
	ErrTooManyFunds = errors.New("lstake: more than one denomination attached")
	// ErrInvalidAmount rejects a deposit whose amount is zero or negative.
	ErrInvalidAmount = errors.New("lstake: amount must be positive")
	// ErrInvalidDenom reports an inbound asset the trace lookup does not know.
	ErrInvalidDenom = errors.New("lstake: invalid denom")
	// ErrUnauthorized reports a caller that is not permitted to perform the
	// operation.
	ErrUnauthorized = errors.New("lstake: unauthorized")
	// ErrStakePending rejects a new deposit while a transaction is in flight.
	ErrStakePending = errors.New("lstake: liquid stake already in flight")
	// ErrNoPendingStake reports a callback or claim arriving without a
	// recorded transaction. At a callback boundary this is an invariant
	// violation.
	ErrNoPendingStake = errors.New("lstake: no pending stake recorded")
	// ErrBalanceUnderflow reports a liquid-staked balance that decreased
	// across the staking call, which only a misbehaving staking module can
	// cause.
	ErrBalanceUnderflow = errors.New("lstake: liquid-staked balance decreased during stake")
	// ErrInvalidRecoveryAddress reports a failed forward with nowhere to send
	// the compensation. The minted tokens stay in the gateway vault and need
	// manual admin intervention.
	ErrInvalidRecoveryAddress = errors.New("lstake: no recovery address set")
	// ErrNoClaimableTokens reports a claim finding no balance increase.
	ErrNoClaimableTokens = errors.New("lstake: no claimable tokens")
	// ErrSubcall wraps the failure reported by an asynchronous external call.
	ErrSubcall = errors.New("lstake: subcall failed")

	errNilState          = errors.New("lstake: state not configured")
	errNilBank           = errors.New("lstake: bank not configured")
	errNilTracer         = errors.New("lstake: denom tracer not configured")
	errNilDispatcher     = errors.New("lstake: dispatcher not configured")
	errNoConfig          = errors.New("lstake: config not initialised")
	errEmptyPrefix       = errors.New("lstake: ls prefix must not be empty")
	errInvalidPolicy     = errors.New("lstake: invalid forward callback policy")
	errInvalidPayoutMode = errors.New("lstake: invalid payout mode")
)
