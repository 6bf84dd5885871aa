package badger

import (
	"github.com/dgraph-io/badger/v2"
	"github.com/vipnode/commutator/store"
)

// Open returns a store.Store implementation using Badger as the storage
// driver. A fresh database is stamped with the current layout version and
// an incompatible one is rejected. The store should be .Close()'d after use.
func Open(opts badger.Options) (*badgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	if err := stampVersion(db, opts.Dir); err != nil {
		db.Close()
		return nil, err
	}
	return &badgerStore{db: db}, nil
}

// OpenDir opens a persistent store in dir with default options and
// Badger's own logging disabled.
func OpenDir(dir string) (*badgerStore, error) {
	return Open(badger.DefaultOptions(dir).WithLogger(nil))
}

var _ store.Store = &badgerStore{}

type badgerStore struct {
	db *badger.DB
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

func (s *badgerStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(valueKey(key))
		if err == badger.ErrKeyNotFound {
			return store.ErrNotFound
		} else if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, err
}

func (s *badgerStore) Set(key string, value []byte) error {
	if err := store.CheckKey(key); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(valueKey(key), append([]byte(nil), value...))
	})
}

func (s *badgerStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		k := valueKey(key)
		if !hasKey(txn, k) {
			return store.ErrNotFound
		}
		return txn.Delete(k)
	})
}

func (s *badgerStore) Keys(prefix string) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		return loopKeys(txn, valueKey(prefix), func(key []byte) error {
			keys = append(keys, string(key[len(valuePrefix):]))
			return nil
		})
	})
	return keys, err
}
