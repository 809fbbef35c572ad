package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore keeps thread state in-process. Threads are independent, so a
// single mutex around the map is enough for isolated read-modify-write per
// thread id. State is stored as its JSON encoding so callers never share a
// live pointer with the store.
type MemoryStore struct {
	mu      sync.Mutex
	threads map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, threadID string) (*ThreadState, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, ErrInvalidThread
	}

	s.mu.Lock()
	raw, ok := s.threads[threadID]
	s.mu.Unlock()

	if !ok {
		return nil, ErrThreadNotFound
	}

	var st ThreadState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal thread state: %w", err)
	}
	return &st, nil
}

func (s *MemoryStore) Save(ctx context.Context, st *ThreadState) error {
	if st == nil {
		return ErrNilThreadState
	}
	if strings.TrimSpace(st.ThreadID) == "" {
		return ErrInvalidThread
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal thread state: %w", err)
	}

	s.mu.Lock()
	s.threads[st.ThreadID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	delete(s.threads, threadID)
	s.mu.Unlock()
	return nil
}
