package clock

import "time"

// Clock provides time to the services.
// Tests substitute a manual implementation.
type Clock interface {
	Now() time.Time
}
