package ratelimiter

import "errors"

// ErrorExceeded is a sentinel error for a request rejected by the rate
// limiter. The engines and middleware in this module report a
// rejection through Result.Allowed and do not return it.
var ErrorExceeded = errors.New("rate limit exceeded")

// ErrStoreUnavailable wraps a store-level failure surfaced to callers
// that need to distinguish "rejected" from "couldn't even check."
var ErrStoreUnavailable = errors.New("rate limit store unavailable")
