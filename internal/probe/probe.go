package probe

import (
	"context"
	"time"
)

// CheckResult is the unified result of a single probe.
//
// StatusCode is 0 for transport errors and timeouts. Latency is measured from
// just before the request is sent until the response body has been read.
type CheckResult struct {
	Success    bool
	StatusCode int
	Latency    time.Duration
	Message    string
}

// Checker performs a single check for a given target URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}
