package trust

import (
	"fmt"
	"time"
)

// ThrottleError возвращается стором, когда внешний trust-контур просит
// подождать (например, вычитан Retry-After). Ретраер учитывает задержку.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}
