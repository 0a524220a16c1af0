package sandbox

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type contextKey int

const userIDKey contextKey = iota

// ProfileResponse is the public view of a user.
type ProfileResponse struct {
	ID        int64  `json:"id_usuario"`
	Name      string `json:"nome"`
	Email     string `json:"email"`
	CreatedAt string `json:"criado_em"`
}

type registerRequest struct {
	Name     string `json:"nome" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"senha" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"senha" validate:"required"`
}

type updateProfileRequest struct {
	Name  string `json:"nome" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// LoginResponse is returned by POST /usuarios/login.
type LoginResponse struct {
	Message string          `json:"mensagem"`
	Token   string          `json:"token"`
	User    ProfileResponse `json:"usuario"`
}

// UserResponse is returned by register and update.
type UserResponse struct {
	Message string          `json:"mensagem"`
	User    ProfileResponse `json:"usuario"`
}

func (u *user) view() ProfileResponse {
	return ProfileResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IssueToken signs a token for userID. Exposed so tests can mint tokens.
func (s *Server) IssueToken(userID int64) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(claims.Subject, 10, 64)
}

// AuthMiddleware requires a valid bearer token for an existing user.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Token não fornecido")
			return
		}
		id, err := s.parseToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
			return
		}
		s.mu.Lock()
		_, exists := s.users[id]
		s.mu.Unlock()
		if !exists {
			writeError(w, http.StatusUnauthorized, "Usuário não encontrado")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

func userIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := checkBody(&req, registerRules); err != nil {
		mapError(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}

	s.mu.Lock()
	if _, taken := s.emails[req.Email]; taken {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Email já cadastrado")
		return
	}
	u := &user{ID: s.allocID(), Name: req.Name, Email: req.Email, PasswordHash: hash, CreatedAt: s.now()}
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	view := u.view()
	s.mu.Unlock()

	s.logger.Info("user registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, UserResponse{Message: "Usuário cadastrado com sucesso", User: view})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := checkBody(&req, loginRules); err != nil {
		mapError(w, err)
		return
	}

	email := normalizeEmail(req.Email)
	if blocked, retryAfter := s.limiter.check(email); blocked {
		s.logger.Warn("login locked out", "retry_after", retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	s.mu.Lock()
	var u *user
	if id, ok := s.emails[email]; ok {
		cp := *s.users[id]
		u = &cp
	}
	s.mu.Unlock()

	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		s.limiter.recordFailure(email)
		writeError(w, http.StatusUnauthorized, "Email ou senha inválidos")
		return
	}
	s.limiter.recordSuccess(email)
	token, err := s.IssueToken(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Message: "Login realizado com sucesso", Token: token, User: u.view()})
}

func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := userIDFromContext(r.Context())
	s.mu.Lock()
	u, ok := s.users[id]
	var view ProfileResponse
	if ok {
		view = u.view()
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Usuário não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := checkBody(&req, updateProfileRules); err != nil {
		mapError(w, err)
		return
	}

	id := userIDFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Usuário não encontrado")
		return
	}
	if other, taken := s.emails[req.Email]; taken && other != id {
		writeError(w, http.StatusConflict, "Email já cadastrado")
		return
	}
	delete(s.emails, u.Email)
	u.Name, u.Email = req.Name, req.Email
	s.emails[u.Email] = u.ID
	writeJSON(w, http.StatusOK, UserResponse{Message: "Perfil atualizado com sucesso", User: u.view()})
}

func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := userIDFromContext(r.Context())
	s.mu.Lock()
	u, ok := s.users[id]
	if ok {
		delete(s.emails, u.Email)
		delete(s.users, id)
		for cid, c := range s.categories {
			if c.Owner == id {
				delete(s.categories, cid)
			}
		}
		for tid, t := range s.transactions {
			if t.Owner == id {
				delete(s.transactions, tid)
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Usuário não encontrado")
		return
	}
	s.logger.Info("user deleted", "user_id", id)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Conta excluída com sucesso"})
}
