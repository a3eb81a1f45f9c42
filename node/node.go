package node

import (
	"log/slog"
	"math/big"
	"sync"

	"lsgate/core/events"
	"lsgate/core/types"
	"lsgate/native/lstake"
	"lsgate/observability/metrics"
)

// Node owns the lstake engine and serialises every invocation against it.
// Each external call (initiate, stake callback, forward callback, claim,
// admin update) runs to completion as one step under the node mutex; no two
// steps ever execute concurrently.
type Node struct {
	mu     sync.Mutex
	engine *lstake.Engine
	log    *slog.Logger
	stats  *metrics.LstakeMetrics

	subMu   sync.Mutex
	subs    map[uint64]chan *types.Event
	nextSub uint64
}

// NewNode wraps the supplied engine and registers itself as the engine's
// event emitter.
func NewNode(engine *lstake.Engine, logger *slog.Logger) *Node {
	n := &Node{
		engine: engine,
		log:    logger,
		stats:  metrics.Lstake(),
		subs:   make(map[uint64]chan *types.Event),
	}
	engine.SetEmitter(n)
	return n
}

// Emit implements events.Emitter: it records metrics per event type and fans
// the payload out to all subscribers without blocking the emitting step.
func (n *Node) Emit(evt events.Event) {
	if n == nil || evt == nil {
		return
	}
	payload, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	event := payload.Event()
	if event == nil {
		return
	}
	switch event.Type {
	case lstake.EventTypeStakeInitiated:
		n.stats.ObserveInitiated()
	case lstake.EventTypeStakeMinted:
		n.stats.ObserveMinted()
	case lstake.EventTypeForwardCompleted:
		n.stats.ObserveForwarded()
	case lstake.EventTypeStakeRefunded:
		n.stats.ObserveRefunded()
	case lstake.EventTypeStakeStranded:
		n.stats.ObserveStranded()
	case lstake.EventTypeStakeClaimed:
		n.stats.ObserveClaimed()
	}
	if n.log != nil {
		attrs := make([]any, 0, 2*len(event.Attributes))
		for k, v := range event.Attributes {
			attrs = append(attrs, slog.String(k, v))
		}
		n.log.Info(event.Type, attrs...)
	}
	n.subMu.Lock()
	defer n.subMu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- event:
		default:
			// Slow subscribers drop events rather than stall a step.
		}
	}
}

// Subscribe registers an event listener. The returned cancel function must be
// called to release the subscription.
func (n *Node) Subscribe() (<-chan *types.Event, func()) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	id := n.nextSub
	n.nextSub++
	ch := make(chan *types.Event, 64)
	n.subs[id] = ch
	cancel := func() {
		n.subMu.Lock()
		defer n.subMu.Unlock()
		if existing, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// LiquidStake runs the deposit entry point as one serialised step.
func (n *Node) LiquidStake(sender, receiver [20]byte, transferChannel string, recovery *[20]byte, funds []lstake.Coin) (*lstake.PendingStake, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.LiquidStake(sender, receiver, transferChannel, recovery, funds)
}

// StakeCallback delivers the settled outcome of the staking call.
func (n *Node) StakeCallback(res lstake.CallbackResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.HandleStakeCallback(res)
}

// ForwardCallback delivers the settled outcome of the second-hop transfer.
func (n *Node) ForwardCallback(res lstake.CallbackResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.HandleForwardCallback(res)
}

// Claim runs the pull-based payout for the recorded receiver.
func (n *Node) Claim(caller [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Claim(caller)
}

// UpdateConfig applies an admin configuration change.
func (n *Node) UpdateConfig(caller [20]byte, update lstake.ConfigUpdate) (lstake.Config, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.UpdateConfig(caller, update)
}

// Config returns the current gateway configuration.
func (n *Node) Config() (lstake.Config, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Config()
}

// Pending returns the in-flight transaction record, if any.
func (n *Node) Pending() (*lstake.PendingStake, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Pending()
}
