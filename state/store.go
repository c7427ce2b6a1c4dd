// Package state provides the flat key/value persistence layer shared by the
// native engine packages. Every persisted value is RLP-encoded and stored
// under a keccak256-hashed, namespace-prefixed key, the same idiom the host
// used in its (consensus-state-carrying) trie-backed state manager, minus the
// Merkle-trie commitment layer: this engine does not produce a chain state
// root, so a flat store over storage.Database is sufficient.
package state

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"membranecore/storage"
)

// ErrNotFound names the "key never written" condition. The typed Get
// accessors in this package do not return it: they report an absent key as
// (nil, nil).
var ErrNotFound = errors.New("state: not found")

// Store wraps a storage.Database with RLP encoding and hashed keys. It has no
// internal locking of its own; callers (the native/* Engine types) serialize
// access the same way the host's lending Engine does, via a single top-level
// entry point per operation.
type Store struct {
	db storage.Database
}

// New constructs a Store over the given backing database.
func New(db storage.Database) *Store {
	return &Store{db: db}
}

// kvKey builds the on-disk key for a namespace and a set of key parts: the
// namespace tag and parts are concatenated and hashed with keccak256, so two
// different namespaces can never collide even if their parts happen to
// coincide byte-for-byte.
func kvKey(namespace string, parts ...[]byte) []byte {
	buf := []byte(namespace)
	for _, p := range parts {
		buf = append(buf, 0) // separator so adjacent parts can't blend into each other
		buf = append(buf, p...)
	}
	hash := crypto.Keccak256(buf)
	return hash
}

// PutRLP RLP-encodes value and stores it under the hashed (namespace, parts) key.
func (s *Store) PutRLP(namespace string, value interface{}, parts ...[]byte) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.db.Put(kvKey(namespace, parts...), encoded)
}

// GetRLP decodes the value stored under the hashed (namespace, parts) key
// into out. It returns (false, nil) when the key has never been written or
// has been deleted, and also when the backing store's Get fails for any
// other reason; only an RLP decode error is returned.
func (s *Store) GetRLP(namespace string, out interface{}, parts ...[]byte) (bool, error) {
	raw, err := s.db.Get(kvKey(namespace, parts...))
	if err != nil {
		return false, nil //nolint:nilerr // storage.Database reports missing keys as an error, not a sentinel; treat all Get errors as "absent" here.
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the value stored under the hashed (namespace, parts) key, if
// any. storage.Database does not expose a delete primitive, so deletion is
// modeled as overwriting with an empty value; GetRLP treats an empty value
// as absent.
func (s *Store) Delete(namespace string, parts ...[]byte) error {
	return s.db.Put(kvKey(namespace, parts...), nil)
}

// Uint64Key renders v as a big-endian 8-byte key part, used for monotonic ids
// (Position IDs, Bid IDs) so that, were a range-scan ever added on top of the
// backing store, related entries would sort in id order.
func Uint64Key(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
