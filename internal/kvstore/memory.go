// SPDX-License-Identifier: MIT

package kvstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{devices: make(map[string]map[string]string)}
}

func (s *MemoryStore) Put(_ context.Context, deviceID string, kv map[string]string) error {
	if err := checkID(deviceID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[deviceID] = cloneMap(kv)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, deviceID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kv, ok := s.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, deviceID)
	}
	return cloneMap(kv), nil
}

func (s *MemoryStore) Delete(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[deviceID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, deviceID)
	}
	delete(s.devices, deviceID)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
