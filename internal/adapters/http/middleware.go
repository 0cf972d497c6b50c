package httpadapter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-Id"

type requestIDContextKey struct{}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDContextKey{}, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r)
	})
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		remoteAddr := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			remoteAddr = host
		}

		logAttrs := []any{
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.statusCode,
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes", recorder.bytesWritten,
			"remote_addr", remoteAddr,
			"user_agent", r.UserAgent(),
		}

		switch {
		case recorder.statusCode >= 500:
			slog.Error("http_request", logAttrs...)
		case recorder.statusCode >= 400:
			slog.Warn("http_request", logAttrs...)
		default:
			slog.Info("http_request", logAttrs...)
		}
	})
}

// TrafficControl combines a per-client token-bucket rate limit with a global
// concurrency gate. SSE streams are exempt from the gate; they are long-lived
// by design and bounded by the monitor's own poll budget.
type TrafficControl struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	gate        chan struct{}
	gateTimeout time.Duration
}

func NewTrafficControl(rps float64, burst, maxConcurrent int, gateTimeout time.Duration) *TrafficControl {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = int(rps)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	if gateTimeout <= 0 {
		gateTimeout = 100 * time.Millisecond
	}
	return &TrafficControl{
		rps:         rate.Limit(rps),
		burst:       burst,
		limiters:    make(map[string]*rate.Limiter),
		gate:        make(chan struct{}, maxConcurrent),
		gateTimeout: gateTimeout,
	}
}

func (tc *TrafficControl) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tc.limiterFor(clientKey(r)).Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(tc.rps)))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded, slow down",
			})
			return
		}

		if isStreamingPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		timer := time.NewTimer(tc.gateTimeout)
		defer timer.Stop()
		select {
		case tc.gate <- struct{}{}:
			defer func() { <-tc.gate }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "server overloaded, try again later",
			})
		case <-r.Context().Done():
		}
	})
}

// clientKey prefers the authenticated identity so one tenant cannot exhaust
// another's budget from behind shared NAT.
func clientKey(r *http.Request) string {
	if uid := r.Header.Get("X-User-Id"); uid != "" {
		return "user:" + uid
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	return "addr:" + host
}

func (tc *TrafficControl) limiterFor(key string) *rate.Limiter {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	limiter, ok := tc.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(tc.rps, tc.burst)
		tc.limiters[key] = limiter
	}
	return limiter
}

func retryAfterSeconds(rps rate.Limit) int {
	if rps <= 0 {
		return 1
	}
	secs := int(1 / float64(rps))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func isStreamingPath(path string) bool {
	return strings.HasPrefix(path, "/v1/documents/") && strings.HasSuffix(path, "/events")
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
