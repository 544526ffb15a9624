// Package configstore implements the embedded key/value backing store for
// cmd/configd, satisfying ggconfigd's read/write contract without the
// SQLite schema-migration machinery spec.md §1 scopes out. Grounded on
// haivivi-giztoy's pkg/kv.Badger wrapper around BadgerDB v4.
package configstore

import (
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/corebus"
)

// KeyPathSeparator joins key_path segments into a single badger key,
// matching ggconfigd's dotted-path addressing collapsed onto a flat
// keyspace.
const KeyPathSeparator = "/"

// Store is a badger-backed KV store keyed on joined key_path segments,
// with values round-tripped through the same msgpack wire encoding
// internal/corebus uses for corert.Value.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a Store rooted at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(quietLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, corert.NewErr("configstore_open", corert.KindFailure, err.Error())
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func joinKeyPath(keyPath []string) string {
	return strings.Join(keyPath, KeyPathSeparator)
}

// Read fetches the value stored at keyPath, grounded on
// ggconfigd's `read({key_path})` contract. Returns KindNoEntry if no value
// has ever been written there.
func (s *Store) Read(keyPath []string) (corert.Value, error) {
	key := joinKeyPath(keyPath)
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return corert.Null(), corert.NewErr("configstore_read", corert.KindNoEntry, "no value at key_path "+key)
	}
	if err != nil {
		return corert.Null(), corert.NewErr("configstore_read", corert.KindFailure, err.Error())
	}

	var wire any
	if err := msgpack.Unmarshal(raw, &wire); err != nil {
		return corert.Null(), corert.NewErr("configstore_read", corert.KindFatal, "corrupt stored value: "+err.Error())
	}
	return corebus.ValueFromWire(wire), nil
}

// Write stores value at keyPath, grounded on ggconfigd's
// `write({key_path, value, timeStamp})` contract. timeStamp is accepted for
// interface compatibility but merge/conflict resolution against a prior
// write's timestamp is part of the SQLite schema-migration machinery
// spec.md §1 excludes — writes simply overwrite.
func (s *Store) Write(keyPath []string, value corert.Value, timeStamp int64) error {
	_ = timeStamp
	raw, err := msgpack.Marshal(corebus.ValueToWire(value))
	if err != nil {
		return corert.NewErr("configstore_write", corert.KindInvalid, err.Error())
	}
	key := joinKeyPath(keyPath)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
	if err != nil {
		return corert.NewErr("configstore_write", corert.KindFailure, err.Error())
	}
	return nil
}

// quietLogger suppresses badger's default logging, matching the
// silentLogger pattern in haivivi-giztoy's memory.go — configd has its own
// internal/logging sink and doesn't want badger writing over it.
type quietLogger struct{}

func (quietLogger) Errorf(string, ...interface{})   {}
func (quietLogger) Warningf(string, ...interface{}) {}
func (quietLogger) Infof(string, ...interface{})    {}
func (quietLogger) Debugf(string, ...interface{})   {}
