package server

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"aipedia/internal/metrics"
)

// RateLimitResponse is the body of a 429 answer. RetryAfter is a number of
// seconds, or "tomorrow" once the daily quota is spent.
type RateLimitResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter any    `json:"retryAfter"`
}

// clientIP returns the caller address without its port. RealIP has already
// replaced RemoteAddr with the forwarded address when there is one.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimit applies the per-IP quota to provider routes.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.providers.Limiter == nil || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		decision, err := s.providers.Limiter.Allow(r.Context(), ip)
		if err != nil {
			s.log.Warn("Rate limiter unavailable, allowing request", "ip", ip, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Reset.IsZero() {
			h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))
		}

		if decision.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		metrics.ObserveRejection(decision.Daily)
		h.Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
		s.log.Info("Rate limit exceeded", "ip", ip, "daily", decision.Daily, "retry_after", decision.RetryAfterSeconds())

		if decision.Daily {
			s.respondJSON(w, http.StatusTooManyRequests, RateLimitResponse{
				Error:      "Daily limit exceeded",
				Message:    "You have reached your daily request limit.",
				RetryAfter: "tomorrow",
			})
			return
		}
		s.respondJSON(w, http.StatusTooManyRequests, RateLimitResponse{
			Error:      "Rate limit exceeded",
			Message:    "Too many requests, please try again later.",
			RetryAfter: decision.RetryAfterSeconds(),
		})
	})
}

// requestLogger logs each request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Info("Request handled",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
