// Package sandbox is an in-memory implementation of the finance backend's
// REST contract. It backs `pocketledger sandbox` and the client tests.
package sandbox

import (
	_ "embed"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-openapi/runtime/middleware"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmcleod/pocketledger/internal/util"
	"github.com/jmcleod/pocketledger/model"
)

//go:embed openapi.yaml
var openapiSpec []byte

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

type user struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

type category struct {
	model.Category
	Owner int64
}

type transaction struct {
	ID          int64
	Owner       int64
	Description string
	Amount      decimal.Decimal
	Date        string
	Kind        model.Kind
	CategoryID  int64
}

type fault struct {
	status  int
	message string
}

// Server holds the sandbox state. All methods are safe for concurrent use.
type Server struct {
	mu           sync.Mutex
	users        map[int64]*user
	emails       map[string]int64
	categories   map[int64]*category
	transactions map[int64]*transaction
	nextID       int64
	faults       map[string]fault
	limiter      *loginLimiter

	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSecret sets the HS256 signing secret. A random one is used otherwise.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = util.CopyBytes(secret)
	}
}

// WithTokenTTL overrides DefaultTokenTTL.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = d
	}
}

// WithClock replaces time.Now for token issue and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithBcryptCost sets the password hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) {
		s.bcryptCost = cost
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates an empty sandbox.
func New(opts ...Option) *Server {
	s := &Server{
		users:        make(map[int64]*user),
		emails:       make(map[string]int64),
		categories:   make(map[int64]*category),
		transactions: make(map[int64]*transaction),
		faults:       make(map[string]fault),
		tokenTTL:     DefaultTokenTTL,
		bcryptCost:   bcrypt.DefaultCost,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.secret == nil {
		secret, err := util.NewKey()
		if err != nil {
			panic(err)
		}
		s.secret = secret
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.limiter = newLoginLimiter(s.now)
	return s
}

// FailNext makes the next request to method+path (a route pattern such as
// "/usuarios/deletar") answer status with message instead of being handled.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = fault{status: status, message: message}
}

func (s *Server) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f, ok := s.faultFor(r); ok {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// faultFor pops a pending fault whose path ends the matched route pattern,
// so faults work whatever prefix the router is mounted under.
func (s *Server) faultFor(r *http.Request) (fault, bool) {
	pattern := chi.RouteContext(r.Context()).RoutePattern()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, f := range s.faults {
		method, path, _ := strings.Cut(key, " ")
		if method == r.Method && strings.HasSuffix(pattern, path) {
			delete(s.faults, key)
			return f, true
		}
	}
	return fault{}, false
}

// Router returns a chi.Router with the API routes, relative to the API base.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, nil))

	r.Group(func(r chi.Router) {
		r.Use(s.faultMiddleware)
		r.Post("/usuarios/cadastrar", s.Register)
		r.Post("/usuarios/login", s.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.faultMiddleware)
		r.Use(s.AuthMiddleware)

		r.Get("/usuarios/perfil", s.GetProfile)
		r.Put("/usuarios/atualizar", s.UpdateProfile)
		r.Delete("/usuarios/deletar", s.DeleteAccount)

		r.Get("/categorias", s.ListCategories)
		r.Post("/categorias", s.CreateCategory)
		r.Get("/categorias/{id}", s.GetCategory)
		r.Put("/categorias/{id}", s.UpdateCategory)
		r.Delete("/categorias/{id}", s.DeleteCategory)

		r.Get("/transacoes", s.ListTransactions)
		r.Post("/transacoes", s.CreateTransaction)
		r.Get("/transacoes/resumo", s.Summary)
		r.Get("/transacoes/{id}", s.GetTransaction)
		r.Put("/transacoes/{id}", s.UpdateTransaction)
		r.Delete("/transacoes/{id}", s.DeleteTransaction)
	})

	return r
}

// Handler returns the full sandbox HTTP handler with the API under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Mount("/api", s.Router())
	return r
}

func (s *Server) allocID() int64 {
	s.nextID++
	return s.nextID
}
