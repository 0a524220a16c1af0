package apiclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/pocketledger/apiclient"
)

// tokenBox is a TokenStore over a plain string.
type tokenBox struct {
	mu      sync.Mutex
	token   string
	removed int
}

func (b *tokenBox) Token(context.Context) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token, b.token != ""
}

func (b *tokenBox) RemoveToken(context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = ""
	b.removed++
}

func (b *tokenBox) get() (string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token, b.removed
}

func tagStage(name string, trace *[]string) apiclient.Stage {
	return apiclient.Stage{Name: name, Wrap: func(next http.RoundTripper) http.RoundTripper {
		return apiclient.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			*trace = append(*trace, name+">")
			resp, err := next.RoundTrip(req)
			*trace = append(*trace, "<"+name)
			return resp, err
		})
	}}
}

func okTransport(trace *[]string) http.RoundTripper {
	return apiclient.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		*trace = append(*trace, "transport")
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}")), Request: req}, nil
	})
}

func TestPipelineOrder(t *testing.T) {
	var trace []string
	p := apiclient.NewPipeline(okTransport(&trace), tagStage("a", &trace), tagStage("b", &trace))
	req := httptest.NewRequest(http.MethodGet, "http://example.test/x", nil)

	resp, err := p.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []string{"a>", "b>", "transport", "<b", "<a"}, trace)
}

func TestPipelineInsertRemove(t *testing.T) {
	var trace []string
	p := apiclient.NewPipeline(okTransport(&trace), tagStage("a", &trace), tagStage("c", &trace))

	require.NoError(t, p.Insert("c", tagStage("b", &trace)))
	assert.Equal(t, []string{"a", "b", "c"}, p.Names())

	assert.Error(t, p.Insert("missing", tagStage("x", &trace)))

	assert.True(t, p.Remove("a"))
	assert.False(t, p.Remove("a"))
	p.Use(tagStage("d", &trace))
	assert.Equal(t, []string{"b", "c", "d"}, p.Names())

	resp, err := p.RoundTrip(httptest.NewRequest(http.MethodGet, "http://example.test/x", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []string{"b>", "c>", "d>", "transport", "<d", "<c", "<b"}, trace)
}

func TestDefaultStageNames(t *testing.T) {
	c, err := apiclient.New("http://example.test/api", apiclient.WithTokenStore(&tokenBox{}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		apiclient.StageRequestID,
		apiclient.StageAttachCredentials,
		apiclient.StageHandleUnauthorized,
		apiclient.StageLog,
	}, c.Pipeline().Names())

	c, err = apiclient.New("http://example.test/api")
	require.NoError(t, err)
	assert.Equal(t, []string{apiclient.StageRequestID, apiclient.StageLog}, c.Pipeline().Names())
}

func TestAttachCredentials(t *testing.T) {
	var got []string
	base := apiclient.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		got = append(got, req.Header.Get("Authorization"))
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
	})
	box := &tokenBox{}
	p := apiclient.NewPipeline(base, apiclient.AttachCredentials(box))

	req := httptest.NewRequest(http.MethodGet, "http://example.test/x", nil)
	_, err := p.RoundTrip(req)
	require.NoError(t, err)

	box.token = "abc"
	_, err = p.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer abc"}, got)
	assert.Empty(t, req.Header.Get("Authorization"), "caller's request is not mutated")
}

func TestHandleUnauthorized(t *testing.T) {
	status := http.StatusUnauthorized
	base := apiclient.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: status, Body: http.NoBody, Request: req}, nil
	})
	box := &tokenBox{token: "stale"}
	notified := 0
	p := apiclient.NewPipeline(base, apiclient.HandleUnauthorized(box, func(context.Context) { notified++ }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "http://example.test/x", nil).WithContext(ctx)
	resp, err := p.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, removed := box.get()
	assert.Empty(t, token)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, notified)

	status = http.StatusForbidden
	box.token = "fresh"
	_, err = p.RoundTrip(req)
	require.NoError(t, err)
	token, removed = box.get()
	assert.Equal(t, "fresh", token, "only 401 removes the token")
	assert.Equal(t, 1, removed)
}

func TestRequestID(t *testing.T) {
	var ids []string
	base := apiclient.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		ids = append(ids, req.Header.Get(apiclient.RequestIDHeader))
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
	})
	p := apiclient.NewPipeline(base, apiclient.RequestID())

	_, err := p.RoundTrip(httptest.NewRequest(http.MethodGet, "http://example.test/x", nil))
	require.NoError(t, err)
	_, err = p.RoundTrip(httptest.NewRequest(http.MethodGet, "http://example.test/x", nil))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "http://example.test/x", nil)
	req.Header.Set(apiclient.RequestIDHeader, "fixed")
	_, err = p.RoundTrip(req)
	require.NoError(t, err)

	require.Len(t, ids, 3)
	assert.NotEmpty(t, ids[0])
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, "fixed", ids[2])
}
