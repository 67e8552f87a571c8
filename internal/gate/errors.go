package gate

import "errors"

var (
	// ErrRedisUnavailable is returned when the shared gate cannot reach Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
