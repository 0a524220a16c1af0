package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jmcleod/pocketledger/model"
)

// CategoryService covers the /categorias endpoints.
type CategoryService struct {
	c *Client
}

func categoryPath(id int64) string {
	return "/categorias/" + strconv.FormatInt(id, 10)
}

// List returns every category of the signed-in user.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := s.c.do(ctx, http.MethodGet, "/categorias", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*model.Category, error) {
	var out model.Category
	if err := s.c.do(ctx, http.MethodGet, categoryPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CategoryService) Create(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	var out model.Category
	if err := s.c.do(ctx, http.MethodPost, "/categorias", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, in model.CategoryInput) (*model.Category, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	var out model.Category
	if err := s.c.do(ctx, http.MethodPut, categoryPath(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CategoryService) Delete(ctx context.Context, id int64) (*Confirmation, error) {
	var out Confirmation
	if err := s.c.do(ctx, http.MethodDelete, categoryPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
