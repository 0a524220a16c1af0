package sandbox

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jmcleod/pocketledger/model"
)

// rule maps a failed validation to the backend's message. Key is either a
// tag ("required") or field.tag ("senha.min").
type rule struct {
	key string
	msg string
}

var (
	registerRules = []rule{
		{"required", "Nome, email e senha são obrigatórios"},
		{"email", "Email inválido"},
		{"senha.min", "A senha deve ter no mínimo 6 caracteres"},
	}
	loginRules = []rule{
		{"required", "Email e senha são obrigatórios"},
	}
	updateProfileRules = []rule{
		{"required", "Nome e email são obrigatórios"},
		{"email", "Email inválido"},
	}
	categoryRules = []rule{
		{"required", "Nome e tipo são obrigatórios"},
		{"oneof", "Tipo deve ser 'receita' ou 'despesa'"},
	}
	transactionRules = []rule{
		{"required", "Descrição, valor, data, tipo e categoria são obrigatórios"},
		{"id_categoria.gt", "Descrição, valor, data, tipo e categoria são obrigatórios"},
		{"valor.gt", "O valor deve ser maior que zero"},
		{"datetime", "Data inválida, use o formato AAAA-MM-DD"},
		{"oneof", "Tipo deve ser 'receita' ou 'despesa'"},
	}
)

// checkBody validates v and reports the first rule, in rules order, that
// any failed field matches. Unmatched failures fall back to fieldError.
func checkBody(v any, rules []rule) error {
	err := model.Validator().Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	for _, r := range rules {
		for _, fe := range ve {
			if r.key == fe.Tag() || r.key == fe.Field()+"."+fe.Tag() {
				return invalid(r.msg)
			}
		}
	}
	return invalid(fieldError(ve[0]))
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " é obrigatório"
	case "email":
		return field + " deve ser um email válido"
	case "gt":
		return fmt.Sprintf("%s deve ser maior que %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s deve ter no mínimo %s caracteres", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s deve ter no máximo %s caracteres", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s deve ser um de: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s inválido (%s)", field, fe.Tag())
	}
}

// validDate reports whether s is a YYYY-MM-DD calendar date.
func validDate(s string) bool {
	return model.Validator().Var(s, "datetime="+model.DateLayout) == nil
}
