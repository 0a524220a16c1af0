// Package session owns the authentication lifecycle of the client.
//
// A Controller is the only writer of the session State. It wraps every
// remote call so that failures come back as a Result carrying a
// user-facing message instead of an error, and it keeps the credential
// store and the in-memory state in step: login persists token and profile
// together, logout clears the store before resetting memory, and a 401 seen
// anywhere in the HTTP pipeline ends the session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/text/language"

	"github.com/jmcleod/pocketledger/apiclient"
	"github.com/jmcleod/pocketledger/internal/i18n"
	"github.com/jmcleod/pocketledger/model"
)

// Status is the coarse authentication state.
type Status int

const (
	Loading Status = iota
	Unauthenticated
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. User is nil unless authenticated.
type State struct {
	Status          Status
	User            *model.Profile
	IsAuthenticated bool
	IsLoading       bool
}

// Store is the credential store the controller persists to.
type Store interface {
	Token(ctx context.Context) (string, bool)
	User(ctx context.Context) (model.Profile, bool)
	SaveUser(ctx context.Context, p model.Profile)
	SaveCredentials(ctx context.Context, token string, p model.Profile)
	ClearAll(ctx context.Context)
}

// Client is the subset of the backend client the controller drives.
type Client interface {
	Login(ctx context.Context, email, password string) (*apiclient.LoginResponse, error)
	Register(ctx context.Context, name, email, password string) (*apiclient.UserResponse, error)
	Profile(ctx context.Context) (*model.Profile, error)
	UpdateProfile(ctx context.Context, name, email string) (*apiclient.UserResponse, error)
	DeleteAccount(ctx context.Context) (*apiclient.Confirmation, error)
	OnUnauthorized(fn func(context.Context))
}

// Controller is the process-wide session context.
type Controller struct {
	store   Store
	client  Client
	logger  *slog.Logger
	printer *i18n.Printer
	now     func() time.Time

	mu      sync.RWMutex
	state   State
	gen     uint64
	token   *memguard.Enclave
	subs    map[int]chan State
	nextSub int
	closed  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLanguage selects the language of failure messages (pt-BR by default).
func WithLanguage(tag language.Tag) Option {
	return func(c *Controller) {
		c.printer = i18n.New(tag)
	}
}

// WithClock replaces time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New returns a Controller in the Loading state and subscribes it to the
// client's unauthorized notifications. Call Load before use.
func New(store Store, client Client, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		client: client,
		now:    time.Now,
		state:  State{Status: Loading, IsLoading: true},
		subs:   make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if c.printer == nil {
		c.printer = i18n.New(i18n.Supported[0])
	}
	client.OnUnauthorized(c.handleUnauthorized)
	return c
}

// Load restores the session from the store. Both a token and a cached
// profile must be present; a half record, or a JWT whose exp has passed,
// is cleared and the session starts unauthenticated.
func (c *Controller) Load(ctx context.Context) State {
	token, hasToken := c.store.Token(ctx)
	user, hasUser := c.store.User(ctx)

	if hasToken && c.expired(token) {
		c.logger.InfoContext(ctx, "stored token expired")
		hasToken = false
	}

	if hasToken && hasUser {
		c.mu.Lock()
		c.authenticate(token, user)
		c.mu.Unlock()
		return c.State()
	}

	if hasToken || hasUser {
		c.store.ClearAll(ctx)
	}
	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	return c.State()
}

// expired reports whether token is a JWT whose exp is not in the future.
// Opaque tokens never expire locally.
func (c *Controller) expired(token string) bool {
	exp, ok := tokenExpiry(token)
	return ok && !c.now().Before(exp)
}

// tokenExpiry reads the exp claim of a JWT without verifying it.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Close ends every subscription and wipes the in-memory token. The store
// is left as it is.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.token = nil
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

// Token returns the live bearer token, or false when not authenticated.
func (c *Controller) Token() (string, bool) {
	c.mu.RLock()
	enclave := c.token
	c.mu.RUnlock()
	if enclave == nil {
		return "", false
	}
	buf, err := enclave.Open()
	if err != nil {
		c.logger.Error("opening token enclave", "error", err)
		return "", false
	}
	defer buf.Destroy()
	return string(buf.Bytes()), true
}

// ExpiresAt returns when the live token expires. ok is false when signed
// out or when the token is opaque.
func (c *Controller) ExpiresAt() (time.Time, bool) {
	token, ok := c.Token()
	if !ok {
		return time.Time{}, false
	}
	return tokenExpiry(token)
}

// Subscribe returns a channel that receives the current state and then
// every change. A slow reader only sees the latest state. The channel is
// closed by cancel or Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshot()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// snapshot copies the state. Callers hold c.mu.
func (c *Controller) snapshot() State {
	s := c.state
	if s.User != nil {
		u := s.User.Clone()
		s.User = &u
	}
	return s
}

// publish sends the state to every subscriber, replacing an unread one.
// Callers hold c.mu for writing.
func (c *Controller) publish() {
	s := c.snapshot()
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// authenticate adopts token and user. Callers hold c.mu for writing.
func (c *Controller) authenticate(token string, user model.Profile) {
	c.gen++
	c.token = memguard.NewEnclave([]byte(token))
	user = user.Clone()
	c.state = State{Status: Authenticated, User: &user, IsAuthenticated: true}
	c.publish()
}

// reset moves to Unauthenticated. Callers hold c.mu for writing.
func (c *Controller) reset() {
	c.gen++
	c.token = nil
	c.state = State{Status: Unauthenticated}
	c.publish()
}

func (c *Controller) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *Controller) handleUnauthorized(ctx context.Context) {
	c.store.ClearAll(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == Authenticated {
		c.logger.InfoContext(ctx, "session ended by backend")
	}
	c.reset()
}

// Login signs in and persists token and profile together.
func (c *Controller) Login(ctx context.Context, email, password string) Result[*apiclient.LoginResponse] {
	resp, err := c.client.Login(ctx, email, password)
	if err != nil {
		return Fail[*apiclient.LoginResponse](c.Explain(ctx, err, i18n.LoginFailed))
	}
	c.store.SaveCredentials(ctx, resp.Token, resp.User)
	c.mu.Lock()
	c.authenticate(resp.Token, resp.User)
	c.mu.Unlock()
	return Ok(resp)
}

// Register creates an account. The session is not changed.
func (c *Controller) Register(ctx context.Context, name, email, password string) Result[*apiclient.UserResponse] {
	resp, err := c.client.Register(ctx, name, email, password)
	if err != nil {
		return Fail[*apiclient.UserResponse](c.Explain(ctx, err, i18n.RegisterFailed))
	}
	return Ok(resp)
}

// Logout clears the store, then resets the session.
func (c *Controller) Logout(ctx context.Context) {
	c.store.ClearAll(ctx)
	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
}

// UpdateProfile changes name and email on the backend and adopts the
// returned profile. The authentication state is unchanged either way.
func (c *Controller) UpdateProfile(ctx context.Context, name, email string) Result[*apiclient.UserResponse] {
	gen := c.generation()
	resp, err := c.client.UpdateProfile(ctx, name, email)
	if err != nil {
		return Fail[*apiclient.UserResponse](c.Explain(ctx, err, i18n.UpdateProfileFailed))
	}
	c.adopt(ctx, gen, resp.User)
	return Ok(resp)
}

// RefreshProfile fetches the current profile and adopts it.
func (c *Controller) RefreshProfile(ctx context.Context) Result[*model.Profile] {
	gen := c.generation()
	p, err := c.client.Profile(ctx)
	if err != nil {
		return Fail[*model.Profile](c.Explain(ctx, err, i18n.LoadProfileFailed))
	}
	c.adopt(ctx, gen, *p)
	return Ok(p)
}

// adopt persists and installs p unless the session ended or was replaced
// since generation gen was observed.
func (c *Controller) adopt(ctx context.Context, gen uint64, p model.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state.Status != Authenticated {
		c.logger.InfoContext(ctx, "session changed during request; profile not adopted")
		return
	}
	p = p.Clone()
	c.store.SaveUser(ctx, p)
	c.state.User = &p
	c.publish()
}

// DeleteAccount deletes the account on the backend. Only when the backend
// confirms are the store cleared and the session reset.
func (c *Controller) DeleteAccount(ctx context.Context) Result[*apiclient.Confirmation] {
	resp, err := c.client.DeleteAccount(ctx)
	if err != nil {
		return Fail[*apiclient.Confirmation](c.Explain(ctx, err, i18n.DeleteAccountFailed))
	}
	c.Logout(ctx)
	return Ok(resp)
}

// Printer returns the printer used for messages.
func (c *Controller) Printer() *i18n.Printer {
	return c.printer
}

// Explain turns an error from the backend client into a user-facing
// message: the backend's own message when it sent one, otherwise the
// localized fallback.
func (c *Controller) Explain(ctx context.Context, err error, fallback i18n.Key) string {
	var (
		validationErr *apiclient.ValidationError
		authErr       *apiclient.AuthError
		networkErr    *apiclient.NetworkError
	)
	switch {
	case errors.As(err, &validationErr):
		if len(validationErr.Fields) > 0 {
			msgs := make([]string, 0, len(validationErr.Fields))
			for _, f := range validationErr.Fields {
				msgs = append(msgs, c.printer.Field(f.Field, f.Tag, f.Param))
			}
			return strings.Join(msgs, "; ")
		}
		if validationErr.Status != 0 && validationErr.Message != "" && validationErr.Err == nil {
			return validationErr.Message
		}
		c.logger.WarnContext(ctx, "request failed", "error", err)
	case errors.As(err, &authErr):
		if authErr.Message != "" {
			return authErr.Message
		}
	case errors.As(err, &networkErr):
		c.logger.WarnContext(ctx, "backend unreachable", "error", err, "timeout", networkErr.Timeout())
	default:
		c.logger.ErrorContext(ctx, "unexpected error", "error", err)
	}
	return c.printer.Text(fallback)
}
