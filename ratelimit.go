// ratelimit.go: rate limiting for the diagnostic error callback
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pyre

import (
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter guards the user-supplied ErrorCallback: a failing disk can
// otherwise generate thousands of callback invocations per second, which
// is worse than the disk failure itself.
type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(events int, per time.Duration) *rateLimiter {
	if events <= 0 {
		events = 10
	}
	if per <= 0 {
		per = time.Second
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(float64(events)/per.Seconds()), events)}
}

func (r *rateLimiter) Allow() bool {
	return r.limiter.Allow()
}
