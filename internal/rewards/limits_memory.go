package rewards

import (
	"context"
	"sync"
)

// MemoryLimitStore is an in-process LimitStore. Suitable for a single
// instance; multi-instance deployments need the Redis store so all replicas
// see one usage counter.
type MemoryLimitStore struct {
	mu    sync.Mutex
	usage map[string]int64 // wallet|day -> base units
}

// NewMemoryLimitStore creates an empty in-memory limit store.
func NewMemoryLimitStore() *MemoryLimitStore {
	return &MemoryLimitStore{usage: make(map[string]int64)}
}

func limitKey(wallet, day string) string {
	return wallet + "|" + day
}

// Reserve implements LimitStore.
func (s *MemoryLimitStore) Reserve(ctx context.Context, wallet, day string, amount, limit int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := limitKey(wallet, day)
	used := s.usage[key]
	if used+amount > limit {
		return used, false, nil
	}
	s.usage[key] = used + amount
	return used + amount, true, nil
}

// Release implements LimitStore.
func (s *MemoryLimitStore) Release(ctx context.Context, wallet, day string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := limitKey(wallet, day)
	s.usage[key] -= amount
	if s.usage[key] <= 0 {
		delete(s.usage, key)
	}
	return nil
}

// Usage implements LimitStore.
func (s *MemoryLimitStore) Usage(ctx context.Context, wallet, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[limitKey(wallet, day)], nil
}

// EvictBefore drops usage entries for days lexicographically older than day.
// Day keys are ISO dates, so string order is chronological order.
func (s *MemoryLimitStore) EvictBefore(day string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key := range s.usage {
		for i := len(key) - 1; i >= 0; i-- {
			if key[i] == '|' {
				if key[i+1:] < day {
					delete(s.usage, key)
					evicted++
				}
				break
			}
		}
	}
	return evicted
}

var _ LimitStore = (*MemoryLimitStore)(nil)
