package probe

import (
	"context"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound check.
const DefaultTimeout = 5 * time.Second

// maxDrain caps how much of a health body is read before the connection is released.
const maxDrain = 64 << 10

// HTTPChecker issues one GET per check. Only a 2xx final response counts as
// success; redirects are followed by the client.
type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return CheckResult{Success: false, Message: err.Error()}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return CheckResult{Success: false, Message: err.Error(), Latency: time.Since(start)}
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	latency := time.Since(start)
	if err != nil {
		return CheckResult{Success: false, StatusCode: resp.StatusCode, Message: err.Error(), Latency: latency}
	}

	return CheckResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Message:    resp.Status,
		Latency:    latency,
	}
}
