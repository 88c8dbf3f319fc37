// Package kv defines the durable key-value storage the task store writes to,
// and opens one of its backends by name.
package kv

import (
	"fmt"
	"io"
	"strings"

	"github.com/idilsaglam/tasks/internal/kv/filekv"
	"github.com/idilsaglam/tasks/internal/kv/memkv"
	"github.com/idilsaglam/tasks/internal/kv/sqlitekv"
)

// Storage is a string key-value store. Get reports ok=false for an absent key.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// StorageCloser is a Storage that holds resources.
type StorageCloser interface {
	Storage
	io.Closer
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the named backend. path is ignored for the memory backend.
func Open(backend, path string) (StorageCloser, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendFile, "":
		s, err := filekv.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		return s, nil
	case BackendSQLite:
		s, err := sqlitekv.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return s, nil
	case BackendMemory:
		return memkv.New(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q (want file, sqlite or memory)", backend)
}
