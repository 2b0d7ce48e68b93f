// Package lock provides non-blocking, expiring locks used to keep a chapter
// from being generated twice at the same time.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrLocked = errors.New("lock held by another worker")

type Lease interface {
	Release(ctx context.Context) error
}

// Locker acquires key for at most ttl, or fails with ErrLocked if it is
// already held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Memory is a process-local Locker.
type Memory struct {
	mu   sync.Mutex
	held map[string]memoryHold
	now  func() time.Time
}

type memoryHold struct {
	token   uint64
	expires time.Time
}

var tokens struct {
	sync.Mutex
	next uint64
}

func nextToken() uint64 {
	tokens.Lock()
	defer tokens.Unlock()
	tokens.next++
	return tokens.next
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]memoryHold), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if h, ok := m.held[key]; ok && now.Before(h.expires) {
		return nil, ErrLocked
	}

	token := nextToken()
	m.held[key] = memoryHold{token: token, expires: now.Add(ttl)}
	return &memoryLease{m: m, key: key, token: token}, nil
}

type memoryLease struct {
	m     *Memory
	key   string
	token uint64
}

func (l *memoryLease) Release(context.Context) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	if h, ok := l.m.held[l.key]; ok && h.token == l.token {
		delete(l.m.held, l.key)
	}
	return nil
}
