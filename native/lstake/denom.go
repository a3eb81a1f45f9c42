package lstake

import (
	"fmt"
	"strings"
)

// DenomTracer resolves a network-qualified asset identifier to the base denom
// it wraps. ok is false when the identifier is not a recognised wrapped
// asset.
type DenomTracer interface {
	DenomTrace(ibcDenom string) (base string, ok bool, err error)
}

// ResolveLSDenom looks up the base denom for the inbound asset and derives
// the liquid-staked denom by prefixing it. Pure lookup, no side effects.
func ResolveLSDenom(tracer DenomTracer, lsPrefix, ibcDenom string) (base, lsDenom string, err error) {
	if tracer == nil {
		return "", "", errNilTracer
	}
	trimmed := strings.TrimSpace(ibcDenom)
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: empty denom", ErrInvalidDenom)
	}
	base, ok, err := tracer.DenomTrace(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("lstake: denom trace: %w", err)
	}
	if !ok || strings.TrimSpace(base) == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidDenom, trimmed)
	}
	return base, lsPrefix + base, nil
}
