package lockout

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
)

type record struct {
	attempts   int
	lockoutEnd time.Time
}

// MemoryTracker keeps failure records in a mutex-guarded map. State is lost
// on restart.
type MemoryTracker struct {
	mu      sync.Mutex
	records map[string]*record
	policy  Policy
	now     func() time.Time
}

// NewMemoryTracker builds a tracker for policy. now may be nil.
func NewMemoryTracker(policy Policy, now func() time.Time) *MemoryTracker {
	if now == nil {
		now = time.Now
	}
	return &MemoryTracker{records: make(map[string]*record), policy: policy, now: now}
}

// current returns the live record for key, dropping one whose lockout has
// elapsed. Caller holds mu.
func (t *MemoryTracker) current(key string, now time.Time) *record {
	r, ok := t.records[key]
	if !ok {
		return nil
	}
	if !r.lockoutEnd.IsZero() && !r.lockoutEnd.After(now) {
		delete(t.records, key)
		return nil
	}
	return r
}

func (t *MemoryTracker) IsLockedOut(_ context.Context, email string) (time.Duration, error) {
	key := common.NormalizeEmail(email)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if r := t.current(key, now); r != nil && r.lockoutEnd.After(now) {
		return r.lockoutEnd.Sub(now), nil
	}
	return 0, nil
}

func (t *MemoryTracker) RecordFailure(_ context.Context, email string) (time.Duration, error) {
	key := common.NormalizeEmail(email)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.current(key, now)
	if r == nil {
		r = &record{}
		t.records[key] = r
	}
	if r.lockoutEnd.After(now) {
		return r.lockoutEnd.Sub(now), nil
	}

	r.attempts++
	if r.attempts >= t.policy.Threshold {
		r.attempts = t.policy.Threshold
		r.lockoutEnd = now.Add(t.policy.Duration)
		return t.policy.Duration, nil
	}
	return 0, nil
}

func (t *MemoryTracker) Reset(_ context.Context, email string) error {
	key := common.NormalizeEmail(email)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if r := t.current(key, now); r != nil && r.lockoutEnd.After(now) {
		return nil
	}
	delete(t.records, key)
	return nil
}

// Sweep drops records whose lockout has elapsed and returns how many were
// removed. Counters below the threshold are kept.
func (t *MemoryTracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for key, r := range t.records {
		if !r.lockoutEnd.IsZero() && !r.lockoutEnd.After(now) {
			delete(t.records, key)
			n++
		}
	}
	return n
}
