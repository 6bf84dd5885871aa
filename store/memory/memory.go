package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/vipnode/commutator/store"
)

// New implements an ephemeral in-memory store. Values are lost on Close.
func New() *memoryStore {
	return &memoryStore{
		values: map[string][]byte{},
	}
}

// Assert Store implementation
var _ store.Store = &memoryStore{}

type memoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (s *memoryStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *memoryStore) Set(key string, value []byte) error {
	if err := store.CheckKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *memoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.values, key)
	return nil
}

func (s *memoryStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := []string{}
	for key := range s.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.values = map[string][]byte{}
	s.mu.Unlock()
	return nil
}
