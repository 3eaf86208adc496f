package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const allowed = "https://status.example.com"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func serve(h http.Handler, method, origin string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/health", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOriginGuard(t *testing.T) {
	h := OriginGuard(allowed)(okHandler())

	cases := []struct {
		name       string
		origin     string
		wantStatus int
		wantACAO   string
	}{
		{"no origin", "", http.StatusOK, ""},
		{"null origin", "null", http.StatusOK, ""},
		{"allowed origin", allowed, http.StatusOK, allowed},
		{"other origin", "https://evil.example.com", http.StatusForbidden, ""},
	}
	for _, c := range cases {
		rec := serve(h, http.MethodGet, c.origin, nil)
		assert.Equal(t, c.wantStatus, rec.Code, c.name)
		assert.Equal(t, c.wantACAO, rec.Header().Get("Access-Control-Allow-Origin"), c.name)
		if c.wantStatus == http.StatusForbidden {
			assert.Equal(t, `{"error":"Forbidden: Unauthorized origin"}`, rec.Body.String(), c.name)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), c.name)
		}
	}
}

func TestOriginGuard_AllowedRequestCarriesMethodsAndHeaders(t *testing.T) {
	h := OriginGuard(allowed)(okHandler())

	rec := serve(h, http.MethodGet, allowed, nil)
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))

	// requests that never claimed an origin get no CORS headers at all
	rec = serve(h, http.MethodGet, "", nil)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestOriginGuard_NoAllowedOriginRejectsCrossOrigin(t *testing.T) {
	h := OriginGuard("")(okHandler())

	assert.Equal(t, http.StatusForbidden, serve(h, http.MethodGet, "https://anything.example.com", nil).Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "", nil).Code, "same-origin request should pass")
}

func TestOriginGuard_Preflight(t *testing.T) {
	h := OriginGuard(allowed)(okHandler())
	preflight := map[string]string{
		"Access-Control-Request-Method":  http.MethodGet,
		"Access-Control-Request-Headers": "Content-Type",
	}

	rec := serve(h, http.MethodOptions, allowed, preflight)
	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, rec.Code)
	assert.Equal(t, allowed, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
	assert.Equal(t, "content-type", strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")))

	// a preflight from a foreign origin is refused before CORS handling
	rec = serve(h, http.MethodOptions, "https://evil.example.com", preflight)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
