// Package store holds the handful of identifiers that outlive a single
// page view: the applicant session id and the manager credential bundle.
package store

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Keys persisted by the two flows. Plain strings, no expiry.
const (
	KeySessionID    = "loan_session_id"
	KeyManagerToken = "manager_token"
	KeyManagerName  = "manager_name"
	KeyManagerEmail = "manager_email"
)

// Store is the durable local key/value surface both flows share. There
// is a single foreground writer; no locking beyond badger's own.
type Store interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
	Delete(keys ...string) error
	Close() error
}

type badgerStore struct {
	db *badger.DB
}

// Open opens (creating if needed) the on-disk store at path.
func Open(path string) (Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store at %s: %w", path, err)
	}
	return &badgerStore{db: db}, nil
}

// OpenInMemory opens a store that never touches disk. Tests use it.
func OpenInMemory() (Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory state store: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = string(raw)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *badgerStore) Put(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *badgerStore) Delete(keys ...string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
