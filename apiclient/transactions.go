package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jmcleod/pocketledger/model"
)

// TransactionService covers the /transacoes endpoints.
type TransactionService struct {
	c *Client
}

func transactionPath(id int64) string {
	return "/transacoes/" + strconv.FormatInt(id, 10)
}

// List returns transactions matching f. Only non-zero filter fields are sent.
func (s *TransactionService) List(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error) {
	var out []model.Transaction
	if err := s.c.do(ctx, http.MethodGet, "/transacoes", f.Query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	var out model.Transaction
	if err := s.c.do(ctx, http.MethodGet, transactionPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TransactionService) Create(ctx context.Context, in model.TransactionInput) (*model.Transaction, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	var out model.Transaction
	if err := s.c.do(ctx, http.MethodPost, "/transacoes", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TransactionService) Update(ctx context.Context, id int64, in model.TransactionInput) (*model.Transaction, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	var out model.Transaction
	if err := s.c.do(ctx, http.MethodPut, transactionPath(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) (*Confirmation, error) {
	var out Confirmation
	if err := s.c.do(ctx, http.MethodDelete, transactionPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary returns income, expense and balance between from and to (inclusive, YYYY-MM-DD).
func (s *TransactionService) Summary(ctx context.Context, from, to string) (*model.Summary, error) {
	q := url.Values{}
	q.Set("data_inicio", from)
	q.Set("data_fim", to)
	var out model.Summary
	if err := s.c.do(ctx, http.MethodGet, "/transacoes/resumo", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MonthSummary returns the summary for the calendar month containing t.
func (s *TransactionService) MonthSummary(ctx context.Context, t time.Time) (*model.Summary, error) {
	from, to := model.MonthRange(t)
	return s.Summary(ctx, from, to)
}
