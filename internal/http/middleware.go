package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// AccountContextKey is the key for storing the resolved account id in the
	// request context.
	AccountContextKey ContextKey = "account_id"

	// Default rate limit key prefix in Valkey
	rateLimitKeyPrefix = "rate_limit:"

	accountHeader = "X-Account-ID"
)

// ExtractAccount resolves the account from the X-Account-ID header placed by
// the upstream auth gateway. Requests without an account are refused; token
// validation itself happens before traffic reaches this service.
func (s *Server) ExtractAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := strings.TrimSpace(r.Header.Get(accountHeader))
		if accountID == "" {
			s.log.Debug().Str("path", r.URL.Path).Msg("Request without account header, denying access")
			http.Error(w, "Unauthorized: Missing X-Account-ID header", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), AccountContextKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accountFromContext returns the account id placed by ExtractAccount.
func accountFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(AccountContextKey).(string)
	return accountID, ok && accountID != ""
}

// LoggerMiddleware provides structured logging for HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			// Child logger so request-scoped fields never leak into the
			// global logger.
			reqLogger := logger.With().Logger()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				reqID := middleware.GetReqID(r.Context())

				// Recover and record stack traces in case of a panic
				if rec := recover(); rec != nil {
					reqLogger.Error().
						Str("type", "error").
						Timestamp().
						Interface("recover_info", rec).
						Bytes("debug_stack", debug.Stack()).
						Str("request_id", reqID).
						Msg("Unhandled panic recovered by middleware")
					http.Error(ww, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// RateLimiter creates a middleware for rate limiting requests based on account
// id or IP address. It uses a sliding window counter algorithm with Valkey for
// storing rate limit counters.
func (s *Server) RateLimiter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip rate limiting if disabled in config
		if !s.config.Config.RateLimit.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		logger := s.log.With().Str("middleware", "RateLimiter").Logger()

		// Get client identifier (account id or IP address)
		identifier, identifierType := s.getClientIdentifier(r)

		// Check if client is exempt from rate limiting
		if s.isExemptFromRateLimit(identifier, identifierType) {
			logger.Debug().
				Str("identifier", identifier).
				Str("type", identifierType).
				Msg("Client exempt from rate limiting")
			next.ServeHTTP(w, r)
			return
		}

		requestsPerMinute := s.config.Config.RateLimit.RequestsPerMinute
		windowSeconds := s.config.Config.RateLimit.WindowSeconds

		// Default values if not configured
		if requestsPerMinute <= 0 {
			requestsPerMinute = 20
		}
		if windowSeconds <= 0 {
			windowSeconds = 60
		}

		exceeded, currentCount, err := s.checkRateLimit(r.Context(), identifier, identifierType, requestsPerMinute, windowSeconds)
		if err != nil {
			logger.Error().Err(err).
				Str("identifier", identifier).
				Str("type", identifierType).
				Msg("Error checking rate limit")
			// Allow request to proceed on error to avoid blocking legitimate traffic
			next.ServeHTTP(w, r)
			return
		}

		if exceeded {
			logger.Warn().
				Str("identifier", identifier).
				Str("type", identifierType).
				Int("current_count", currentCount).
				Int("limit", requestsPerMinute).
				Int("window_seconds", windowSeconds).
				Msg("Rate limit exceeded")

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", requestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", windowSeconds))

			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", requestsPerMinute))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", requestsPerMinute-currentCount))

		logger.Debug().
			Str("identifier", identifier).
			Str("type", identifierType).
			Int("current_count", currentCount).
			Int("limit", requestsPerMinute).
			Msg("Rate limit check passed")

		next.ServeHTTP(w, r)
	})
}

// getClientIdentifier returns the client identifier for rate limiting.
// It tries the resolved account id first, then falls back to IP address.
func (s *Server) getClientIdentifier(r *http.Request) (string, string) {
	if accountID, ok := accountFromContext(r.Context()); ok {
		return accountID, "account_id"
	}

	ip := getClientIP(r)
	return ip, "ip_address"
}

// getClientIP extracts the client IP address from the request.
// It handles various headers that might contain the real client IP when behind proxies.
func getClientIP(r *http.Request) string {
	// Check for X-Forwarded-For header
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			clientIP := strings.TrimSpace(ips[0])
			if clientIP != "" {
				return clientIP
			}
		}
	}

	// Check for X-Real-IP header
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If error, just return RemoteAddr as is
		return r.RemoteAddr
	}

	return ip
}

// isExemptFromRateLimit checks if the client is exempt from rate limiting.
// Exemptions are internal IP addresses such as health probes.
func (s *Server) isExemptFromRateLimit(identifier string, identifierType string) bool {
	if identifierType != "ip_address" {
		return false
	}

	exemptIPs := strings.Split(s.config.Config.RateLimit.ExemptInternalIPs, ",")
	for _, exemptIP := range exemptIPs {
		exemptIP = strings.TrimSpace(exemptIP)
		if exemptIP != "" && exemptIP == identifier {
			return true
		}
	}

	return false
}

// checkRateLimit checks if the client has exceeded the rate limit.
// It uses a sliding window counter algorithm with Valkey for storing rate limit counters.
func (s *Server) checkRateLimit(ctx context.Context, identifier string, identifierType string, limit int, windowSeconds int) (bool, int, error) {
	var valkeyClient = s.valkeyService.GetClient()
	if valkeyClient == nil {
		return false, 0, fmt.Errorf("valkey client not available")
	}

	// Create a key for the rate limit counter
	key := fmt.Sprintf("%s%s:%s", rateLimitKeyPrefix, identifierType, identifier)

	// Current timestamp
	now := time.Now().Unix()

	// Remove counts older than the window
	cutoff := now - int64(windowSeconds)

	// Remove expired entries (sliding window)
	valkeyClient.Do(ctx, valkeyClient.B().Zremrangebyscore().Key(key).Min("-inf").Max(fmt.Sprintf("%d", cutoff)).Build())

	// Add current request with current timestamp as score
	valkeyClient.Do(ctx, valkeyClient.B().Zadd().Key(key).ScoreMember().ScoreMember(float64(now), fmt.Sprintf("%d", now)).Build())

	// Set expiration on the key to ensure cleanup
	valkeyClient.Do(ctx, valkeyClient.B().Expire().Key(key).Seconds(int64(windowSeconds)).Build())

	// Count the number of requests in the current window
	countCmd := valkeyClient.Do(ctx, valkeyClient.B().Zcard().Key(key).Build())
	if countCmd.Error() != nil {
		return false, 0, fmt.Errorf("error counting rate limit entries: %w", countCmd.Error())
	}

	count, err := countCmd.AsInt64()
	if err != nil {
		return false, 0, fmt.Errorf("error parsing rate limit count: %w", err)
	}

	// Check if limit exceeded
	return int(count) > limit, int(count), nil
}
