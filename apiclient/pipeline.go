package apiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Names of the built-in stages, in default order.
const (
	StageRequestID          = "request-id"
	StageAttachCredentials  = "attach-credentials"
	StageHandleUnauthorized = "handle-unauthorized"
	StageLog                = "log"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Stage is a named middleware step wrapped around every request.
type Stage struct {
	Name string
	Wrap func(next http.RoundTripper) http.RoundTripper
}

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// TokenSink forgets the bearer token after the backend rejected it.
type TokenSink interface {
	RemoveToken(ctx context.Context)
}

// Pipeline is an http.RoundTripper that runs an ordered list of stages in
// front of a base transport. The first stage sees the request first and the
// response last.
type Pipeline struct {
	mu     sync.RWMutex
	base   http.RoundTripper
	stages []Stage
}

var _ http.RoundTripper = (*Pipeline)(nil)

// NewPipeline returns a pipeline over base (http.DefaultTransport when nil).
func NewPipeline(base http.RoundTripper, stages ...Stage) *Pipeline {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Pipeline{base: base, stages: slices.Clone(stages)}
}

// Use appends stages after the existing ones, closest to the transport.
func (p *Pipeline) Use(stages ...Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, stages...)
}

// Insert places s immediately before the stage named before.
func (p *Pipeline) Insert(before string, s Stage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.IndexFunc(p.stages, func(st Stage) bool { return st.Name == before })
	if i < 0 {
		return fmt.Errorf("pipeline has no stage %q", before)
	}
	p.stages = slices.Insert(p.stages, i, s)
	return nil
}

// Remove drops the stage called name and reports whether it was present.
func (p *Pipeline) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.stages)
	p.stages = slices.DeleteFunc(p.stages, func(st Stage) bool { return st.Name == name })
	return len(p.stages) != n
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	p.mu.RLock()
	rt := p.base
	for i := len(p.stages) - 1; i >= 0; i-- {
		rt = p.stages[i].Wrap(rt)
	}
	p.mu.RUnlock()
	return rt.RoundTrip(req)
}

// RequestID tags each request with a fresh X-Request-ID unless the caller set one.
func RequestID() Stage {
	return Stage{Name: StageRequestID, Wrap: func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(req)
			}
			r := req.Clone(req.Context())
			r.Header.Set(RequestIDHeader, uuid.NewString())
			return next.RoundTrip(r)
		})
	}}
}

// AttachCredentials reads the token before every request and, when one is
// stored, sends it as a bearer Authorization header. It runs for every
// request; callers only reach authenticated endpoints when a session exists.
func AttachCredentials(src TokenSource) Stage {
	return Stage{Name: StageAttachCredentials, Wrap: func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			token, ok := src.Token(req.Context())
			if !ok {
				return next.RoundTrip(req)
			}
			r := req.Clone(req.Context())
			r.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(r)
		})
	}}
}

// HandleUnauthorized removes the stored token whenever the backend answers
// 401, then runs notify. The response itself is passed on unchanged.
func HandleUnauthorized(sink TokenSink, notify func(context.Context)) Stage {
	return Stage{Name: StageHandleUnauthorized, Wrap: func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			// The request context may already be done; the purge must still happen.
			ctx := context.WithoutCancel(req.Context())
			sink.RemoveToken(ctx)
			if notify != nil {
				notify(ctx)
			}
			return resp, nil
		})
	}}
}

// Logging writes one debug record per exchange. Headers are never logged.
func Logging(logger *slog.Logger) Stage {
	return Stage{Name: StageLog, Wrap: func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"request_id", req.Header.Get(RequestIDHeader),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.DebugContext(req.Context(), "request failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.DebugContext(req.Context(), "request completed", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}}
}
