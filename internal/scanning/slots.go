package scanning

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/anstrom/rangescan/internal/errors"
)

// ScanSlots bounds how many scans one Scanner runs at the same time. Each
// scan holds one slot from the moment its workers start until its summary
// is built.
type ScanSlots struct {
	capacity int64
	sem      *semaphore.Weighted

	mu     sync.RWMutex
	active map[string]time.Time
}

// NewScanSlots creates a limiter with capacity slots; values below one mean
// one slot.
func NewScanSlots(capacity int) *ScanSlots {
	capacity = max(capacity, 1)
	return &ScanSlots{
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
		active:   make(map[string]time.Time),
	}
}

// Acquire blocks until a slot is free for scanID or ctx ends.
func (s *ScanSlots) Acquire(ctx context.Context, scanID string) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return errors.WrapScanError(errors.CodeCanceled, "waiting for a scan slot", err)
	}

	s.mu.Lock()
	s.active[scanID] = time.Now()
	s.mu.Unlock()
	return nil
}

// Release frees the slot held by scanID. Unknown IDs are ignored.
func (s *ScanSlots) Release(scanID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[scanID]; !ok {
		return
	}
	delete(s.active, scanID)
	s.sem.Release(1)
}

// Active returns the number of scans holding a slot.
func (s *ScanSlots) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Available returns the number of free slots.
func (s *ScanSlots) Available() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.capacity) - len(s.active)
}

// Oldest returns how long the longest running scan has held its slot.
func (s *ScanSlots) Oldest() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var oldest time.Duration
	now := time.Now()
	for _, started := range s.active {
		oldest = max(oldest, now.Sub(started))
	}
	return oldest
}
