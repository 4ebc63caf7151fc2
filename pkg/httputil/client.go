// Package httputil provides shared HTTP utilities with connection pooling
// and safe response handling for the decoy engine's outbound calls.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize is the default maximum size for reading HTTP response bodies.
// External LLM providers and collectors are untrusted - a misconfigured
// endpoint could return gigabytes of data and OOM the process.
const MaxResponseSize = 2 * 1024 * 1024 // 2MB

// Shared transport with optimized connection pooling.
// Safe for concurrent use; reusing TCP connections across requests keeps
// per-turn latency predictable.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

var (
	clientMu sync.Mutex
	clients  = map[time.Duration]*http.Client{}
)

// Client returns a shared HTTP client with the given total-request timeout.
// Clients share one connection pool; use this instead of constructing
// http.Client instances per call site.
func Client(timeout time.Duration) *http.Client {
	clientMu.Lock()
	defer clientMu.Unlock()

	if c, ok := clients[timeout]; ok {
		return c
	}
	c := &http.Client{Timeout: timeout, Transport: sharedTransport}
	clients[timeout] = c
	return c
}

// ReadResponseBody safely reads an HTTP response body with a size limit.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose properly drains and closes an HTTP response body.
// This ensures connection reuse in the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
