package apiclient

import (
	"context"
	"net/http"

	"github.com/jmcleod/pocketledger/model"
)

// LoginRequest is the body of POST /usuarios/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"senha" validate:"required"`
}

// LoginResponse carries the issued token and the signed-in profile.
type LoginResponse struct {
	Token   string        `json:"token"`
	User    model.Profile `json:"usuario"`
	Message string        `json:"mensagem,omitempty"`
}

// RegisterRequest is the body of POST /usuarios/cadastrar.
type RegisterRequest struct {
	Name     string `json:"nome" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"senha" validate:"required,min=6"`
}

// UserResponse wraps a profile returned by register and update.
type UserResponse struct {
	User    model.Profile `json:"usuario"`
	Message string        `json:"mensagem,omitempty"`
}

// UpdateProfileRequest is the body of PUT /usuarios/atualizar.
type UpdateProfileRequest struct {
	Name  string `json:"nome" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// Confirmation is the body returned by delete endpoints.
type Confirmation struct {
	Message string `json:"mensagem,omitempty"`
}

// Login exchanges credentials for a token. It does not store anything.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := Validate(req); err != nil {
		return nil, err
	}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/usuarios/login", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &ValidationError{Status: http.StatusOK, Message: "login response carried no token"}
	}
	return &resp, nil
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, name, email, password string) (*UserResponse, error) {
	req := RegisterRequest{Name: name, Email: email, Password: password}
	if err := Validate(req); err != nil {
		return nil, err
	}
	var resp UserResponse
	if err := c.do(ctx, http.MethodPost, "/usuarios/cadastrar", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	var p model.Profile
	if err := c.do(ctx, http.MethodGet, "/usuarios/perfil", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile changes the signed-in user's name and email.
func (c *Client) UpdateProfile(ctx context.Context, name, email string) (*UserResponse, error) {
	req := UpdateProfileRequest{Name: name, Email: email}
	if err := Validate(req); err != nil {
		return nil, err
	}
	var resp UserResponse
	if err := c.do(ctx, http.MethodPut, "/usuarios/atualizar", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteAccount permanently removes the signed-in user on the backend.
func (c *Client) DeleteAccount(ctx context.Context) (*Confirmation, error) {
	var resp Confirmation
	if err := c.do(ctx, http.MethodDelete, "/usuarios/deletar", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
