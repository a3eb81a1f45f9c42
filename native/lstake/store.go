package lstake

import (
	"fmt"
	"math/big"
	"strings"
)

// Storage is the named-slot persistence interface the module relies on.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

type storedConfig struct {
	Active          bool
	LSPrefix        string
	Admin           []byte
	ICATimeout      uint64
	TransferTimeout uint64
	CallbackPolicy  uint8
	PayoutMode      uint8
}

type storedPendingStake struct {
	Sender          []byte
	Receiver        []byte
	TransferChannel string
	IBCDenom        string
	LSDenom         string
	BalanceBefore   string
	BalanceChange   string
	RecoveryAccount []byte
	Status          uint8
}

// Store persists the gateway configuration and the single in-flight
// transaction record.
type Store struct {
	state Storage
}

// NewStore constructs a store backed by the provided storage.
func NewStore(state Storage) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (Storage, error) {
	if s == nil || s.state == nil {
		return nil, errNilState
	}
	return s.state, nil
}

// PutConfig persists the supplied configuration after sanitising it.
func (s *Store) PutConfig(cfg Config) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	sanitized, err := SanitizeConfig(cfg)
	if err != nil {
		return err
	}
	stored := storedConfig{
		Active:          sanitized.Active,
		LSPrefix:        sanitized.LSPrefix,
		Admin:           append([]byte(nil), sanitized.Admin[:]...),
		ICATimeout:      sanitized.Timeouts.ICATimeout,
		TransferTimeout: sanitized.Timeouts.TransferTimeout,
		CallbackPolicy:  uint8(sanitized.CallbackPolicy),
		PayoutMode:      uint8(sanitized.PayoutMode),
	}
	return state.KVPut(configKey, stored)
}

// Config loads the persisted configuration. The boolean reports whether one
// has been initialised.
func (s *Store) Config() (Config, bool, error) {
	state, err := s.withState()
	if err != nil {
		return Config{}, false, err
	}
	var stored storedConfig
	ok, err := state.KVGet(configKey, &stored)
	if err != nil || !ok {
		return Config{}, false, err
	}
	cfg := Config{
		Active:   stored.Active,
		LSPrefix: stored.LSPrefix,
		Timeouts: Timeouts{
			ICATimeout:      stored.ICATimeout,
			TransferTimeout: stored.TransferTimeout,
		},
		CallbackPolicy: ForwardCallbackPolicy(stored.CallbackPolicy),
		PayoutMode:     PayoutMode(stored.PayoutMode),
	}
	if len(stored.Admin) != 20 {
		return Config{}, false, fmt.Errorf("lstake: stored admin must be 20 bytes (got %d)", len(stored.Admin))
	}
	copy(cfg.Admin[:], stored.Admin)
	if !cfg.CallbackPolicy.Valid() {
		return Config{}, false, errInvalidPolicy
	}
	if !cfg.PayoutMode.Valid() {
		return Config{}, false, errInvalidPayoutMode
	}
	return cfg, true, nil
}

// PutPending persists the in-flight transaction record, replacing any
// existing one.
func (s *Store) PutPending(p *PendingStake) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("lstake: nil pending stake")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("lstake: invalid stake status: %d", p.Status)
	}
	if strings.TrimSpace(p.LSDenom) == "" {
		return fmt.Errorf("lstake: ls denom required")
	}
	clone := p.Clone()
	stored := storedPendingStake{
		Sender:          append([]byte(nil), clone.Sender[:]...),
		Receiver:        append([]byte(nil), clone.Receiver[:]...),
		TransferChannel: clone.TransferChannel,
		IBCDenom:        clone.IBCDenom,
		LSDenom:         clone.LSDenom,
		BalanceBefore:   clone.BalanceBefore.String(),
		BalanceChange:   clone.BalanceChange.String(),
		Status:          uint8(clone.Status),
	}
	if clone.RecoveryAccount != nil {
		stored.RecoveryAccount = append([]byte(nil), clone.RecoveryAccount[:]...)
	}
	return state.KVPut(pendingKey, stored)
}

// Pending loads the in-flight transaction record. The boolean reports whether
// one exists.
func (s *Store) Pending() (*PendingStake, bool, error) {
	state, err := s.withState()
	if err != nil {
		return nil, false, err
	}
	var stored storedPendingStake
	ok, err := state.KVGet(pendingKey, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	record := &PendingStake{
		TransferChannel: stored.TransferChannel,
		IBCDenom:        stored.IBCDenom,
		LSDenom:         stored.LSDenom,
		Status:          StakeStatus(stored.Status),
	}
	if len(stored.Sender) != 20 || len(stored.Receiver) != 20 {
		return nil, false, fmt.Errorf("lstake: stored addresses must be 20 bytes")
	}
	copy(record.Sender[:], stored.Sender)
	copy(record.Receiver[:], stored.Receiver)
	if !record.Status.Valid() {
		return nil, false, fmt.Errorf("lstake: invalid stored stake status: %d", stored.Status)
	}
	before, err := parseStoredAmount(stored.BalanceBefore)
	if err != nil {
		return nil, false, fmt.Errorf("lstake: balance before: %w", err)
	}
	change, err := parseStoredAmount(stored.BalanceChange)
	if err != nil {
		return nil, false, fmt.Errorf("lstake: balance change: %w", err)
	}
	record.BalanceBefore = before
	record.BalanceChange = change
	switch len(stored.RecoveryAccount) {
	case 0:
	case 20:
		var recovery [20]byte
		copy(recovery[:], stored.RecoveryAccount)
		record.RecoveryAccount = &recovery
	default:
		return nil, false, fmt.Errorf("lstake: stored recovery account must be 20 bytes (got %d)", len(stored.RecoveryAccount))
	}
	return record, true, nil
}

// DeletePending removes the in-flight record. Deleting an absent record is a
// no-op.
func (s *Store) DeletePending() error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	return state.KVDelete(pendingKey)
}

func parseStoredAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", raw)
	}
	return value, nil
}
