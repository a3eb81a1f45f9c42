package storage

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// KVStore provides named-slot storage over a Database. Keys are hashed with
// keccak256 before hitting the backend and values are RLP encoded, matching
// the layout used for module state elsewhere in the gateway.
type KVStore struct {
	db Database
}

// NewKVStore wraps the supplied database in a slot-oriented store.
func NewKVStore(db Database) *KVStore {
	return &KVStore{db: db}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVPut RLP-encodes value and stores it under the hashed key.
func (s *KVStore) KVPut(key []byte, value interface{}) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("kv: database not configured")
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.db.Put(kvKey(key), encoded)
}

// KVGet loads the value stored under key into out. The boolean reports
// whether the slot held a value; a missing slot is not an error.
func (s *KVStore) KVGet(key []byte, out interface{}) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("kv: database not configured")
	}
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := s.db.Get(kvKey(key))
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the slot. Deleting an absent slot is a no-op.
func (s *KVStore) KVDelete(key []byte) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("kv: database not configured")
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return s.db.Delete(kvKey(key))
}
