package model

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by the backend.
const DateLayout = "2006-01-02"

// Transaction is a single income or expense entry.
type Transaction struct {
	ID           int64           `json:"id_transacao"`
	Description  string          `json:"descricao"`
	Amount       decimal.Decimal `json:"valor"`
	Date         string          `json:"data"`
	Kind         Kind            `json:"tipo"`
	CategoryID   int64           `json:"id_categoria"`
	CategoryName string          `json:"nome_categoria,omitempty"`
}

// Day returns the transaction date without any time-of-day suffix the backend may append.
func (t Transaction) Day() string {
	if len(t.Date) >= len(DateLayout) {
		return t.Date[:len(DateLayout)]
	}
	return t.Date
}

// TransactionInput is the body of transaction create and update requests.
type TransactionInput struct {
	Description string          `json:"descricao" validate:"required,max=255"`
	Amount      decimal.Decimal `json:"valor" validate:"gt=0"`
	Date        string          `json:"data" validate:"required,datetime=2006-01-02"`
	Kind        Kind            `json:"tipo" validate:"required,oneof=receita despesa"`
	CategoryID  int64           `json:"id_categoria" validate:"gt=0"`
}

// MarshalJSON sends the amount as a JSON number, which is what the backend parses.
func (in TransactionInput) MarshalJSON() ([]byte, error) {
	type plain TransactionInput
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"valor"`
	}{plain(in), json.Number(in.Amount.String())})
}

// TransactionFilter narrows a transaction listing. Zero fields are not sent.
type TransactionFilter struct {
	Kind       Kind
	From       string
	To         string
	CategoryID int64
}

// Query encodes the filter as URL query parameters.
func (f TransactionFilter) Query() url.Values {
	q := url.Values{}
	if f.Kind != "" {
		q.Set("tipo", string(f.Kind))
	}
	if f.From != "" {
		q.Set("data_inicio", f.From)
	}
	if f.To != "" {
		q.Set("data_fim", f.To)
	}
	if f.CategoryID > 0 {
		q.Set("id_categoria", strconv.FormatInt(f.CategoryID, 10))
	}
	return q
}

// Summary is the income/expense balance for a period.
type Summary struct {
	Income  decimal.Decimal `json:"receitas"`
	Expense decimal.Decimal `json:"despesas"`
	Balance decimal.Decimal `json:"saldo"`
}

// MonthRange returns the first and last calendar day of t's month in DateLayout.
func MonthRange(t time.Time) (from, to string) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}
