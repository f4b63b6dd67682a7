package hold

import (
	"fmt"
	"time"
)

// RateLimitedError is returned when a caller creates holds faster than its
// limit allows.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
