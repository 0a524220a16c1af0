// Package i18n holds the user-facing strings of the client in Brazilian
// Portuguese (the default) and English.
package i18n

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

// Key identifies a message in the catalog.
type Key string

const (
	LoginFailed             Key = "login failed"
	RegisterFailed          Key = "registration failed"
	UpdateProfileFailed     Key = "profile update failed"
	LoadProfileFailed       Key = "profile load failed"
	DeleteAccountFailed     Key = "account deletion failed"
	LoadCategoriesFailed    Key = "categories load failed"
	LoadCategoryFailed      Key = "category load failed"
	CreateCategoryFailed    Key = "category create failed"
	UpdateCategoryFailed    Key = "category update failed"
	DeleteCategoryFailed    Key = "category delete failed"
	LoadTransactionsFailed  Key = "transactions load failed"
	LoadTransactionFailed   Key = "transaction load failed"
	CreateTransactionFailed Key = "transaction create failed"
	UpdateTransactionFailed Key = "transaction update failed"
	DeleteTransactionFailed Key = "transaction delete failed"
	LoadSummaryFailed       Key = "summary load failed"
	NotSignedIn             Key = "not signed in"

	LoggedIn       Key = "logged in"
	Registered     Key = "registered"
	LoggedOut      Key = "logged out"
	ProfileUpdated Key = "profile updated"
	AccountDeleted Key = "account deleted"
	Deleted        Key = "deleted"
	ConfirmDelete  Key = "confirm delete"
	IncomeLabel    Key = "income"
	ExpenseLabel   Key = "expense"
	BalanceLabel   Key = "balance"
	SessionExpires Key = "session expires"

	fieldRequired Key = "field required"
	fieldEmail    Key = "field email"
	fieldGreater  Key = "field gt"
	fieldMin      Key = "field min"
	fieldMax      Key = "field max"
	fieldOneOf    Key = "field oneof"
	fieldDate     Key = "field date"
	fieldInvalid  Key = "field invalid"
)

// Supported lists the catalog languages; the first is the fallback.
var Supported = []language.Tag{language.BrazilianPortuguese, language.English}

var matcher = language.NewMatcher(Supported)

var entries = map[Key][2]string{
	LoginFailed:             {"Erro ao fazer login", "Could not sign in"},
	RegisterFailed:          {"Erro ao cadastrar", "Could not create the account"},
	UpdateProfileFailed:     {"Erro ao atualizar perfil", "Could not update the profile"},
	LoadProfileFailed:       {"Erro ao carregar perfil", "Could not load the profile"},
	DeleteAccountFailed:     {"Erro ao excluir conta", "Could not delete the account"},
	LoadCategoriesFailed:    {"Erro ao carregar categorias", "Could not load categories"},
	LoadCategoryFailed:      {"Erro ao carregar categoria", "Could not load the category"},
	CreateCategoryFailed:    {"Erro ao criar categoria", "Could not create the category"},
	UpdateCategoryFailed:    {"Erro ao atualizar categoria", "Could not update the category"},
	DeleteCategoryFailed:    {"Erro ao excluir categoria", "Could not delete the category"},
	LoadTransactionsFailed:  {"Erro ao carregar transações", "Could not load transactions"},
	LoadTransactionFailed:   {"Erro ao carregar transação", "Could not load the transaction"},
	CreateTransactionFailed: {"Erro ao criar transação", "Could not create the transaction"},
	UpdateTransactionFailed: {"Erro ao atualizar transação", "Could not update the transaction"},
	DeleteTransactionFailed: {"Erro ao excluir transação", "Could not delete the transaction"},
	LoadSummaryFailed:       {"Erro ao carregar resumo financeiro", "Could not load the summary"},
	NotSignedIn:             {"Você não está autenticado", "You are not signed in"},

	LoggedIn:       {"Login realizado como %s", "Signed in as %s"},
	Registered:     {"Conta criada para %s, faça login para continuar", "Account created for %s, sign in to continue"},
	LoggedOut:      {"Sessão encerrada", "Signed out"},
	ProfileUpdated: {"Perfil atualizado", "Profile updated"},
	AccountDeleted: {"Conta excluída", "Account deleted"},
	Deleted:        {"Excluído", "Deleted"},
	ConfirmDelete:  {"Use --yes para confirmar a exclusão permanente da conta", "Pass --yes to confirm permanent account deletion"},
	IncomeLabel:    {"Receitas", "Income"},
	ExpenseLabel:   {"Despesas", "Expenses"},
	BalanceLabel:   {"Saldo", "Balance"},
	SessionExpires: {"Sessão válida até %s", "Session valid until %s"},

	fieldRequired: {"%s é obrigatório", "%s is required"},
	fieldEmail:    {"%s deve ser um email válido", "%s must be a valid email"},
	fieldGreater:  {"%s deve ser maior que %s", "%s must be greater than %s"},
	fieldMin:      {"%s deve ter no mínimo %s caracteres", "%s must be at least %s characters"},
	fieldMax:      {"%s deve ter no máximo %s caracteres", "%s must be at most %s characters"},
	fieldOneOf:    {"%s deve ser um de: %s", "%s must be one of: %s"},
	fieldDate:     {"%s deve ser uma data no formato AAAA-MM-DD", "%s must be a date in the format YYYY-MM-DD"},
	fieldInvalid:  {"%s é inválido", "%s is invalid"},
}

var cat = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(Supported[0]))
	for key, texts := range entries {
		for i, tag := range Supported {
			if err := b.SetString(tag, string(key), texts[i]); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Match returns the supported language closest to the BCP 47 tag s.
// Unknown or malformed tags select the fallback.
func Match(s string) language.Tag {
	requested, err := language.Parse(s)
	if err != nil {
		return Supported[0]
	}
	_, i, _ := matcher.Match(requested)
	return Supported[i]
}

// Printer renders catalog messages in one language.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// New returns a Printer for the supported language closest to tag.
func New(tag language.Tag) *Printer {
	_, i, _ := matcher.Match(tag)
	t := Supported[i]
	return &Printer{tag: t, p: message.NewPrinter(t, message.Catalog(cat))}
}

// Language reports the language the printer renders.
func (p *Printer) Language() language.Tag {
	return p.tag
}

// Text renders key with args.
func (p *Printer) Text(key Key, args ...any) string {
	return p.p.Sprintf(string(key), args...)
}

// Field renders one failed validation rule, as reported by the validator
// (rule tag plus parameter), for field.
func (p *Printer) Field(field, tag, param string) string {
	switch tag {
	case "required":
		return p.Text(fieldRequired, field)
	case "email":
		return p.Text(fieldEmail, field)
	case "gt":
		return p.Text(fieldGreater, field, param)
	case "min":
		return p.Text(fieldMin, field, param)
	case "max":
		return p.Text(fieldMax, field, param)
	case "oneof":
		return p.Text(fieldOneOf, field, param)
	case "datetime":
		return p.Text(fieldDate, field)
	default:
		return p.Text(fieldInvalid, field)
	}
}

// Money formats an amount in reais with two decimals and the language's
// separators, e.g. "R$ 1.234,50" in pt-BR.
func (p *Printer) Money(d decimal.Decimal) string {
	return p.p.Sprintf("R$ %v", number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}
