package identity_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jassus213/ratelimiter-service/identity"
)

func TestExtract_UsesForwardedForWhenPresent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	r.RemoteAddr = "10.0.0.2:5555"

	assert.Equal(t, "203.0.113.5", identity.Extract(r))
}

func TestExtract_FallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.7:9999"

	assert.Equal(t, "198.51.100.7", identity.Extract(r))
}

func TestExtract_IgnoresMalformedForwardedForHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", ", 10.0.0.1")
	r.RemoteAddr = "198.51.100.7:9999"

	assert.Equal(t, "198.51.100.7", identity.Extract(r))
}

func TestExtract_RemoteAddrWithoutPortIsUnchanged(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "unix-socket"

	assert.Equal(t, "unix-socket", identity.Extract(r))
}
