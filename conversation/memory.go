package conversation

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process Backend for tests and single-instance dev runs.
type MemoryBackend struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{states: make(map[string]State)}
}

func (b *MemoryBackend) Load(_ context.Context, subjectID string) (*State, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.states[subjectID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (b *MemoryBackend) Save(_ context.Context, st State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[st.SubjectID] = st
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, subjectID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, subjectID)
	return nil
}

// Len returns the number of stored states, expired ones included.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.states)
}
