package model

import "fmt"

// Kind says whether a category or transaction is money in or money out.
type Kind string

const (
	Income  Kind = "receita"
	Expense Kind = "despesa"
)

// ParseKind accepts the backend spelling and the English aliases used on the command line.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "receita", "income":
		return Income, nil
	case "despesa", "expense":
		return Expense, nil
	default:
		return "", fmt.Errorf("unknown kind %q (want receita or despesa)", s)
	}
}

// Category groups transactions of one kind.
type Category struct {
	ID   int64  `json:"id_categoria"`
	Name string `json:"nome"`
	Kind Kind   `json:"tipo"`
}

// CategoryInput is the body of category create and update requests.
type CategoryInput struct {
	Name string `json:"nome" validate:"required,max=100"`
	Kind Kind   `json:"tipo" validate:"required,oneof=receita despesa"`
}

// FilterByKind returns the categories of kind k, keeping their order.
func FilterByKind(cats []Category, k Kind) []Category {
	var out []Category
	for _, c := range cats {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}
