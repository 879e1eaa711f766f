package assets

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBlobStore keeps blobs in process memory. It backs tests and
// single-node development deployments where no object store is configured;
// ViewURL falls back to the application's own serving route because this
// store cannot presign.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (s *MemoryBlobStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[key] = buf
	return nil
}

// Get returns a copy of the bytes stored under key.
func (s *MemoryBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Delete removes the key.
func (s *MemoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// PresignGet always reports ErrPresignUnsupported; in-process bytes have no
// standalone URL.
func (s *MemoryBlobStore) PresignGet(string, time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

// Len reports the number of stored blobs. Test helper.
func (s *MemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
