// Package blobtest provides an in-memory blob store for service tests.
package blobtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/friedchicken888/cab432-a2/storage"
)

// Store keeps blobs in a map and counts calls.
type Store struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	puts    int
	deletes int

	// FailPut and FailDelete make the next calls fail with the given error.
	FailPut    error
	FailDelete error
}

var _ storage.Provider = (*Store)(nil)

func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut != nil {
		return "", s.FailPut
	}
	key := storage.NewKey(contentType)
	s.blobs[key] = append([]byte(nil), data...)
	s.puts++
	return key, nil
}

func (s *Store) AccessURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if !storage.IsValidStoragePath(key) {
		return "", errors.New("invalid key")
	}
	return "memory://" + key, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete != nil {
		return s.FailDelete
	}
	delete(s.blobs, key)
	s.deletes++
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *Store) Health(context.Context) error { return nil }

func (s *Store) Name() string { return "memory" }

// Len returns the number of stored blobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

func (s *Store) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *Store) Deletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes
}

// Has reports whether key is stored.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok
}
