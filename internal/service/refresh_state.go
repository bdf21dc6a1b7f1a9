package service

import (
	"sync"
	"time"
)

// RefreshState records the modification time of the last snapshot that was
// successfully swapped in. The zero time means no snapshot has been applied.
//
// Holding the lock is what makes a reload cycle exclusive: the worker keeps
// it from the first stat of the file until the new timestamp is stored.
// Request handlers never touch it.
type RefreshState struct {
	mu          sync.Mutex
	lastApplied time.Time
}

// NewRefreshState returns a state that has never applied a snapshot.
func NewRefreshState() *RefreshState {
	return &RefreshState{}
}

// Lock acquires exclusive access for one reload cycle.
func (s *RefreshState) Lock() { s.mu.Lock() }

// Unlock releases the exclusive access taken by Lock.
func (s *RefreshState) Unlock() { s.mu.Unlock() }

// LastApplied returns the recorded snapshot time. The caller must hold the
// lock.
func (s *RefreshState) LastApplied() time.Time { return s.lastApplied }

// Never reports whether no snapshot has been applied yet. The caller must
// hold the lock.
func (s *RefreshState) Never() bool { return s.lastApplied.IsZero() }

// SetLastApplied records a successfully applied snapshot time. The caller
// must hold the lock.
func (s *RefreshState) SetLastApplied(t time.Time) { s.lastApplied = t }
