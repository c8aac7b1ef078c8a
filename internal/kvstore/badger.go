// SPDX-License-Identifier: MIT

package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const badgerPrefix = "dev:"

// BadgerStore keeps each record as a JSON object under key "dev:<id>".
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens a Badger database at path, or an in-memory one when
// inMemory is set (path is then ignored).
func OpenBadgerStore(path string, inMemory bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Put(_ context.Context, deviceID string, kv map[string]string) error {
	if err := checkID(deviceID); err != nil {
		return err
	}
	buf, err := json.Marshal(kv)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerPrefix+deviceID), buf)
	})
}

func (s *BadgerStore) Get(_ context.Context, deviceID string) (map[string]string, error) {
	var out map[string]string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerPrefix + deviceID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, deviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", deviceID, err)
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

func (s *BadgerStore) Delete(_ context.Context, deviceID string) error {
	key := []byte(badgerPrefix + deviceID)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, deviceID)
	}
	return err
}

// List walks the key prefix; Badger iterates keys in byte order.
func (s *BadgerStore) List(_ context.Context) ([]string, error) {
	prefix := []byte(badgerPrefix)
	ids := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
	}
	return ids, nil
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger store is closed")
	}
	return nil
}
