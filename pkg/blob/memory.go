package blob

import (
	"context"
	"io"
	"sync"
)

// MemStore keeps objects in memory. Used by tests as a stand-in for the real
// object store; setting Err forces every Put to fail.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// Err, if set, is returned by every Put.
	Err error
}

func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string][]byte)}
}

func (s *MemStore) Put(ctx context.Context, key string, r io.Reader) (PutResult, error) {
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}
	if s.Err != nil {
		return PutResult{}, s.Err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return PutResult{}, err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return PutResult{URL: "public/" + key, Size: int64(len(data))}, nil
}

// Get returns a stored object's bytes, for assertions.
func (s *MemStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

// Len reports the number of stored objects.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
