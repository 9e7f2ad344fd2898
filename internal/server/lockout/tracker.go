// Package lockout throttles sign-in attempts per e-mail address.
//
// After Threshold consecutive failures an address is locked for Duration.
// Failures during an active lockout neither extend the window nor raise the
// counter, and Reset does not lift an active lockout. Once the window has
// elapsed the address starts from a clean slate.
package lockout

import (
	"context"
	"time"
)

// Tracker is the failed-login tracker consulted by the sign-in flow.
// Keys are normalised e-mail addresses; implementations must be safe for
// concurrent use.
type Tracker interface {
	// IsLockedOut returns the remaining lockout, or 0 when email may try.
	IsLockedOut(ctx context.Context, email string) (time.Duration, error)
	// RecordFailure counts one failed attempt and returns the remaining
	// lockout after it, 0 when the address is still below the threshold.
	RecordFailure(ctx context.Context, email string) (time.Duration, error)
	// Reset clears the counter after a fully successful sign-in.
	Reset(ctx context.Context, email string) error
}

// Policy holds the lockout thresholds.
type Policy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultPolicy is five failures, fifteen minutes.
var DefaultPolicy = Policy{Threshold: 5, Duration: 15 * time.Minute}
