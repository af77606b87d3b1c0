package harvest

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNavigateTimeout marks a page load that did not reach the ready state
// within its deadline. It is the only retryable task failure.
var ErrNavigateTimeout = errors.New("navigate timeout")

// IsTimeout reports whether err is a timeout-classified failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNavigateTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// SlugCollisionError reports two distinct URLs mapping to the same slug.
// Collisions are classified errors, never silent drops.
type SlugCollisionError struct {
	Slug     string
	URL      string
	Existing string
}

func (e *SlugCollisionError) Error() string {
	return fmt.Sprintf("slug %q for %s collides with %s", e.Slug, e.URL, e.Existing)
}
