package i18n

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestEveryKeyTranslated(t *testing.T) {
	for _, tag := range Supported {
		p := New(tag)
		for key, texts := range entries {
			want := texts[0]
			if tag == language.English {
				want = texts[1]
			}
			assert.Equal(t, p.p.Sprintf(want), p.p.Sprintf(string(key)), "%s/%s", tag, key)
		}
	}
}

func TestFallbackMessages(t *testing.T) {
	pt := New(language.BrazilianPortuguese)
	assert.Equal(t, "Erro ao fazer login", pt.Text(LoginFailed))
	assert.Equal(t, "Erro ao excluir conta", pt.Text(DeleteAccountFailed))

	en := New(language.English)
	assert.Equal(t, "Could not sign in", en.Text(LoginFailed))
	assert.Equal(t, "Signed in as Ana", en.Text(LoggedIn, "Ana"))
}

func TestMatch(t *testing.T) {
	assert.Equal(t, language.BrazilianPortuguese, Match("pt-BR"))
	assert.Equal(t, language.BrazilianPortuguese, Match("pt"))
	assert.Equal(t, language.English, Match("en-US"))
	assert.Equal(t, language.BrazilianPortuguese, Match("not a tag!"))
	assert.Equal(t, language.English, New(language.AmericanEnglish).Language())
}

func TestField(t *testing.T) {
	pt := New(language.BrazilianPortuguese)
	assert.Equal(t, "senha deve ter no mínimo 6 caracteres", pt.Field("senha", "min", "6"))
	assert.Equal(t, "nome é obrigatório", pt.Field("nome", "required", ""))

	en := New(language.English)
	assert.Equal(t, "valor must be greater than 0", en.Field("valor", "gt", "0"))
	assert.Equal(t, "x is invalid", en.Field("x", "unknown", ""))
}

func TestMoney(t *testing.T) {
	amount := decimal.RequireFromString("1234.5")
	assert.Equal(t, "R$ 1.234,50", New(language.BrazilianPortuguese).Money(amount))
	assert.Equal(t, "R$ 1,234.50", New(language.English).Money(amount))
}
