// Package memkv is an in-process kv.Storage. Values live as long as the
// Storage does, which makes it the session-only backend and the test double.
package memkv

import "sync"

type Storage struct {
	mu sync.RWMutex
	m  map[string]string
}

func New() *Storage {
	return &Storage{m: make(map[string]string)}
}

func (s *Storage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Storage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Storage) Close() error { return nil }
