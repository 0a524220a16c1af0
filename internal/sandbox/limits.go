package sandbox

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// maxLoginFailures is the number of consecutive failures before lockout begins.
	maxLoginFailures = 5
	baseLockout      = time.Minute
	maxLockout       = 15 * time.Minute
	// failureExpiry is how long a failure record survives without new failures.
	failureExpiry = time.Hour
)

// loginLimiter tracks failed logins per normalized email and applies
// exponential backoff once maxLoginFailures is reached.
type loginLimiter struct {
	mu       sync.Mutex
	now      func() time.Time
	attempts map[string]*attemptRecord
}

type attemptRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

func newLoginLimiter(now func() time.Time) *loginLimiter {
	return &loginLimiter{now: now, attempts: make(map[string]*attemptRecord)}
}

// check reports whether email is locked out and for how long.
func (l *loginLimiter) check(email string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.attempts[email]
	if !ok {
		return false, 0
	}
	now := l.now()
	if now.Sub(rec.lastFailure) > failureExpiry {
		delete(l.attempts, email)
		return false, 0
	}
	if now.Before(rec.lockedUntil) {
		return true, rec.lockedUntil.Sub(now)
	}
	return false, 0
}

func (l *loginLimiter) recordFailure(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.attempts[email]
	if !ok {
		rec = &attemptRecord{}
		l.attempts[email] = rec
	}
	rec.failures++
	rec.lastFailure = l.now()

	if rec.failures >= maxLoginFailures {
		lockout := baseLockout
		for i := 0; i < rec.failures-maxLoginFailures; i++ {
			lockout *= 2
			if lockout > maxLockout {
				lockout = maxLockout
				break
			}
		}
		rec.lockedUntil = rec.lastFailure.Add(lockout)
	}
}

func (l *loginLimiter) recordSuccess(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, email)
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, "Muitas tentativas de login, tente novamente mais tarde")
}

// securityHeaders sets standard security response headers. No CSP is sent
// because the Swagger UI page loads its assets from a CDN.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if requestIsSecure(r) {
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
