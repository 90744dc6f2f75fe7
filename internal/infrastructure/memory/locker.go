package memory

import (
	"context"
	"sync"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
)

// Locker is a single-process domain.JobLocker, used when redis is disabled
type Locker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

var _ domain.JobLocker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{held: make(map[string]time.Time), clock: time.Now}
}

func (l *Locker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, false, nil
	}
	until := now.Add(ttl)
	l.held[key] = until

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// чужой захват после истечения ttl не снимаем
		if l.held[key].Equal(until) {
			delete(l.held, key)
		}
	}, true, nil
}
