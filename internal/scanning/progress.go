package scanning

import (
	"slices"
	"sync"
)

// Progress is an Observer that remembers the latest snapshot so other
// goroutines can inspect a running scan. It forwards every event to next,
// which may be nil.
type Progress struct {
	next Observer

	mu      sync.RWMutex
	open    []Result
	summary *Summary
}

// NewProgress wraps next.
func NewProgress(next Observer) *Progress {
	return &Progress{next: next}
}

// OnResult implements Observer.
func (p *Progress) OnResult(snapshot []Result, added Result) {
	p.mu.Lock()
	p.open = snapshot
	p.mu.Unlock()

	if p.next != nil {
		p.next.OnResult(snapshot, added)
	}
}

// OnComplete implements Observer.
func (p *Progress) OnComplete(summary *Summary) {
	p.mu.Lock()
	p.summary = summary
	p.mu.Unlock()

	if p.next != nil {
		p.next.OnComplete(summary)
	}
}

// Open returns the open targets found so far, in sorted order.
func (p *Progress) Open() []Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.open)
}

// Summary returns the final summary, or nil while the scan is running.
func (p *Progress) Summary() *Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.summary
}
