package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmcleod/pocketledger/apiclient"
	"github.com/jmcleod/pocketledger/internal/sandbox"
	"github.com/jmcleod/pocketledger/model"
)

func setupSandbox(t *testing.T) (*sandbox.Server, string) {
	t.Helper()
	sb := sandbox.New(sandbox.WithBcryptCost(bcrypt.MinCost))
	srv := httptest.NewServer(sb.Handler())
	t.Cleanup(srv.Close)
	return sb, srv.URL + "/api"
}

func newClient(t *testing.T, base string, opts ...apiclient.Option) (*apiclient.Client, *tokenBox) {
	t.Helper()
	box := &tokenBox{}
	c, err := apiclient.New(base, append([]apiclient.Option{apiclient.WithTokenStore(box)}, opts...)...)
	require.NoError(t, err)
	return c, box
}

// signIn registers and logs in, storing the token in box.
func signIn(t *testing.T, c *apiclient.Client, box *tokenBox) *apiclient.LoginResponse {
	t.Helper()
	_, err := c.Register(t.Context(), "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	resp, err := c.Login(t.Context(), "ana@example.com", "secret1")
	require.NoError(t, err)
	box.mu.Lock()
	box.token = resp.Token
	box.mu.Unlock()
	return resp
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := apiclient.New("/relative")
	assert.Error(t, err)
	_, err = apiclient.New("http://example.test", apiclient.WithTimeout(0))
	assert.Error(t, err)
}

func TestLoginAndProfile(t *testing.T) {
	_, base := setupSandbox(t)
	c, box := newClient(t, base)

	login := signIn(t, c, box)
	assert.Equal(t, "Ana", login.User.Name)
	assert.NotEmpty(t, login.User.ID())

	p, err := c.Profile(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Equal(t, login.User.ID(), p.ID())
}

func TestLoginInvalidCredentials(t *testing.T) {
	_, base := setupSandbox(t)
	c, box := newClient(t, base)
	_, err := c.Register(t.Context(), "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)

	_, err = c.Login(t.Context(), "ana@example.com", "nope-nope")
	var authErr *apiclient.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Email ou senha inválidos", authErr.Message)
	assert.True(t, apiclient.IsUnauthorized(err))

	_, removed := box.get()
	assert.Equal(t, 1, removed, "a 401 always purges the token")
}

func TestUnauthorizedPurgesTokenAndNotifies(t *testing.T) {
	_, base := setupSandbox(t)
	var calls atomic.Int32
	c, box := newClient(t, base, apiclient.WithUnauthorizedHook(func(context.Context) { calls.Add(1) }))
	c.OnUnauthorized(func(context.Context) { calls.Add(1) })

	box.token = "not-a-real-token"
	_, err := c.Profile(t.Context())
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)

	token, removed := box.get()
	assert.Empty(t, token)
	assert.Equal(t, 1, removed)
	assert.EqualValues(t, 2, calls.Load())
}

func TestBackendErrorsBecomeValidationErrors(t *testing.T) {
	sb, base := setupSandbox(t)
	c, box := newClient(t, base)
	signIn(t, c, box)

	sb.FailNext(http.MethodDelete, "/usuarios/deletar", http.StatusInternalServerError, "Erro ao excluir")
	_, err := c.DeleteAccount(t.Context())
	var ve *apiclient.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, http.StatusInternalServerError, ve.Status)
	assert.Equal(t, "Erro ao excluir", ve.Message)

	_, err = c.Categories.Get(t.Context(), 999)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, http.StatusNotFound, ve.Status)
	assert.Equal(t, "Categoria não encontrada", ve.Message)
}

func TestLocalValidationSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)
	c, _ := newClient(t, srv.URL)

	_, err := c.Register(t.Context(), "", "not-an-email", "123")
	var ve *apiclient.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, ve.Status)
	fields := map[string]string{}
	for _, f := range ve.Fields {
		fields[f.Field] = f.Tag
	}
	assert.Equal(t, map[string]string{"nome": "required", "email": "email", "senha": "min"}, fields)

	_, err = c.Transactions.Create(t.Context(), model.TransactionInput{
		Description: "x", Amount: decimal.NewFromInt(-1), Date: "2026-13-01", Kind: model.Expense, CategoryID: 1,
	})
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 2)

	assert.Zero(t, hits.Load())
}

func TestNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	c, _ := newClient(t, srv.URL, apiclient.WithTimeout(50*time.Millisecond))
	_, err := c.Profile(t.Context())
	var ne *apiclient.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
	assert.ErrorIs(t, err, apiclient.ErrUnavailable)

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	c, _ = newClient(t, url)
	_, err = c.Profile(t.Context())
	require.ErrorAs(t, err, &ne)
	assert.False(t, errors.Is(err, apiclient.ErrUnauthorized))
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	t.Cleanup(srv.Close)
	c, _ := newClient(t, srv.URL)

	_, err := c.Profile(t.Context())
	var ve *apiclient.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, http.StatusOK, ve.Status)
}

func TestCategoryAndTransactionServices(t *testing.T) {
	_, base := setupSandbox(t)
	c, box := newClient(t, base)
	signIn(t, c, box)
	ctx := t.Context()

	salary, err := c.Categories.Create(ctx, model.CategoryInput{Name: "Salário", Kind: model.Income})
	require.NoError(t, err)
	food, err := c.Categories.Create(ctx, model.CategoryInput{Name: "Mercado", Kind: model.Expense})
	require.NoError(t, err)

	cats, err := c.Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
	assert.Equal(t, []model.Category{*food}, model.FilterByKind(cats, model.Expense))

	renamed, err := c.Categories.Update(ctx, food.ID, model.CategoryInput{Name: "Supermercado", Kind: model.Expense})
	require.NoError(t, err)
	assert.Equal(t, "Supermercado", renamed.Name)

	pay, err := c.Transactions.Create(ctx, model.TransactionInput{
		Description: "Salário", Amount: decimal.RequireFromString("4200.50"), Date: "2026-05-05", Kind: model.Income, CategoryID: salary.ID,
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("4200.50").Equal(pay.Amount))

	groceries, err := c.Transactions.Create(ctx, model.TransactionInput{
		Description: "Feira", Amount: decimal.RequireFromString("200.25"), Date: "2026-05-10", Kind: model.Expense, CategoryID: food.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Supermercado", groceries.CategoryName)

	list, err := c.Transactions.List(ctx, model.TransactionFilter{Kind: model.Expense})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, groceries.ID, list[0].ID)

	sum, err := c.Transactions.MonthSummary(ctx, time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "4000.25", sum.Balance.StringFixed(2))

	updated, err := c.Transactions.Update(ctx, groceries.ID, model.TransactionInput{
		Description: "Feira grande", Amount: decimal.RequireFromString("300"), Date: "2026-05-10", Kind: model.Expense, CategoryID: food.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Feira grande", updated.Description)

	got, err := c.Transactions.Get(ctx, groceries.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-10", got.Day())

	_, err = c.Transactions.Delete(ctx, groceries.ID)
	require.NoError(t, err)
	_, err = c.Categories.Delete(ctx, food.ID)
	require.NoError(t, err)
	_, err = c.Categories.Get(ctx, food.ID)
	var ve *apiclient.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, http.StatusNotFound, ve.Status)
}

func TestUpdateProfileAndDeleteAccount(t *testing.T) {
	_, base := setupSandbox(t)
	c, box := newClient(t, base)
	signIn(t, c, box)

	resp, err := c.UpdateProfile(t.Context(), "Ana Maria", "ana.maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", resp.User.Name)

	conf, err := c.DeleteAccount(t.Context())
	require.NoError(t, err)
	assert.NotEmpty(t, conf.Message)

	// The stale token now draws a 401, which removes it.
	_, err = c.Profile(t.Context())
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	token, _ := box.get()
	assert.Empty(t, token)
}
