package sandbox_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmcleod/pocketledger/internal/sandbox"
)

func setupServer(t *testing.T, opts ...sandbox.Option) (*sandbox.Server, *httptest.Server) {
	t.Helper()
	sb := sandbox.New(append([]sandbox.Option{sandbox.WithBcryptCost(bcrypt.MinCost)}, opts...)...)
	srv := httptest.NewServer(sb.Handler())
	t.Cleanup(srv.Close)
	return sb, srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, &reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func registerAndLogin(t *testing.T, base, email string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, base+"/api/usuarios/cadastrar", "", map[string]string{
		"nome": "Ana", "email": email, "senha": "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/api/usuarios/login", "", map[string]string{
		"email": email, "senha": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[sandbox.LoginResponse](t, resp)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, email, login.User.Email)
	return login.Token
}

func TestHealth(t *testing.T) {
	_, srv := setupServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	_, srv := setupServer(t)
	cases := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing name", map[string]string{"email": "a@b.com", "senha": "secret1"}, "Nome, email e senha são obrigatórios"},
		{"blank name", map[string]string{"nome": "  ", "email": "a@b.com", "senha": "secret1"}, "Nome, email e senha são obrigatórios"},
		{"bad email", map[string]string{"nome": "A", "email": "nope", "senha": "secret1"}, "Email inválido"},
		{"short password", map[string]string{"nome": "A", "email": "a@b.com", "senha": "123"}, "A senha deve ter no mínimo 6 caracteres"},
		{"missing beats short", map[string]string{"nome": "A", "senha": "123"}, "Nome, email e senha são obrigatórios"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/usuarios/cadastrar", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.want, decode[sandbox.ErrorResponse](t, resp).Error)
		})
	}
}

func TestBodyValidationMessages(t *testing.T) {
	_, srv := setupServer(t)
	token := registerAndLogin(t, srv.URL, "ana@example.com")
	api := srv.URL + "/api"

	resp := doJSON(t, http.MethodPost, api+"/categorias", token, map[string]string{"nome": "Mercado", "tipo": "despesa"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	groceriesID := int64(decode[map[string]any](t, resp)["id_categoria"].(float64))

	txn := func(overrides map[string]any) map[string]any {
		body := map[string]any{
			"descricao": "Feira", "valor": 10, "data": "2026-03-01", "tipo": "despesa", "id_categoria": groceriesID,
		}
		for k, v := range overrides {
			body[k] = v
		}
		return body
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   string
	}{
		{"login missing password", http.MethodPost, "/usuarios/login", map[string]string{"email": "ana@example.com"}, "Email e senha são obrigatórios"},
		{"profile missing name", http.MethodPut, "/usuarios/atualizar", map[string]string{"email": "ana@example.com"}, "Nome e email são obrigatórios"},
		{"profile bad email", http.MethodPut, "/usuarios/atualizar", map[string]string{"nome": "Ana", "email": "ana@"}, "Email inválido"},
		{"category missing kind", http.MethodPost, "/categorias", map[string]string{"nome": "Lazer"}, "Nome e tipo são obrigatórios"},
		{"category bad kind", http.MethodPost, "/categorias", map[string]string{"nome": "Lazer", "tipo": "outro"}, "Tipo deve ser 'receita' ou 'despesa'"},
		{"transaction missing category", http.MethodPost, "/transacoes", txn(map[string]any{"id_categoria": 0, "valor": 0}), "Descrição, valor, data, tipo e categoria são obrigatórios"},
		{"transaction zero amount", http.MethodPost, "/transacoes", txn(map[string]any{"valor": 0}), "O valor deve ser maior que zero"},
		{"transaction negative amount", http.MethodPost, "/transacoes", txn(map[string]any{"valor": -5}), "O valor deve ser maior que zero"},
		{"transaction bad date", http.MethodPost, "/transacoes", txn(map[string]any{"data": "01/03/2026"}), "Data inválida, use o formato AAAA-MM-DD"},
		{"transaction bad kind", http.MethodPost, "/transacoes", txn(map[string]any{"tipo": "outro"}), "Tipo deve ser 'receita' ou 'despesa'"},
		{"transaction kind mismatch", http.MethodPost, "/transacoes", txn(map[string]any{"tipo": "receita"}), "O tipo da transação deve ser igual ao da categoria"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, tc.method, api+tc.path, token, tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.want, decode[sandbox.ErrorResponse](t, resp).Error)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, srv := setupServer(t)
	registerAndLogin(t, srv.URL, "ana@example.com")
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/usuarios/cadastrar", "", map[string]string{
		"nome": "Other", "email": "ANA@example.com", "senha": "secret1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	_, srv := setupServer(t)
	registerAndLogin(t, srv.URL, "ana@example.com")
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/usuarios/login", "", map[string]string{
		"email": "ana@example.com", "senha": "wrong-pass",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Email ou senha inválidos", decode[sandbox.ErrorResponse](t, resp).Error)
}

func TestLoginLockout(t *testing.T) {
	var clock atomic.Int64
	clock.Store(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix())
	_, srv := setupServer(t, sandbox.WithClock(func() time.Time { return time.Unix(clock.Load(), 0) }))
	registerAndLogin(t, srv.URL, "ana@example.com")

	wrong := map[string]string{"email": "ana@example.com", "senha": "wrong-pass"}
	for range 5 {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/usuarios/login", "", wrong)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	right := map[string]string{"email": "ANA@example.com", "senha": "secret1"}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/usuarios/login", "", right)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	clock.Add(61)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/usuarios/login", "", right)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSecurityHeaders(t *testing.T) {
	_, srv := setupServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Forwarded-Proto", "https")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("Strict-Transport-Security"))
}

func TestAuthRequired(t *testing.T) {
	_, srv := setupServer(t)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, http.MethodGet, srv.URL+"/api/usuarios/perfil", "", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, http.MethodGet, srv.URL+"/api/usuarios/perfil", "garbage", nil).StatusCode)
}

func TestExpiredToken(t *testing.T) {
	var now atomic.Int64
	now.Store(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix())
	clock := func() time.Time { return time.Unix(now.Load(), 0) }
	_, srv := setupServer(t, sandbox.WithClock(clock), sandbox.WithTokenTTL(time.Hour))
	token := registerAndLogin(t, srv.URL, "ana@example.com")

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/usuarios/perfil", token, nil).StatusCode)
	now.Add(int64(2 * time.Hour / time.Second))
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, http.MethodGet, srv.URL+"/api/usuarios/perfil", token, nil).StatusCode)
}

func TestProfileUpdateAndDelete(t *testing.T) {
	_, srv := setupServer(t)
	token := registerAndLogin(t, srv.URL, "ana@example.com")

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/usuarios/atualizar", token, map[string]string{
		"nome": "Ana Maria", "email": "ana.maria@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[sandbox.UserResponse](t, resp)
	assert.Equal(t, "Ana Maria", updated.User.Name)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/usuarios/perfil", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana.maria@example.com", decode[sandbox.ProfileResponse](t, resp).Email)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/usuarios/deletar", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The token outlives the account but no longer authenticates.
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, http.MethodGet, srv.URL+"/api/usuarios/perfil", token, nil).StatusCode)
}

func TestCategoriesAndTransactions(t *testing.T) {
	_, srv := setupServer(t)
	token := registerAndLogin(t, srv.URL, "ana@example.com")
	api := srv.URL + "/api"

	resp := doJSON(t, http.MethodPost, api+"/categorias", token, map[string]string{"nome": "Salário", "tipo": "receita"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	salary := decode[map[string]any](t, resp)
	salaryID := int64(salary["id_categoria"].(float64))

	resp = doJSON(t, http.MethodPost, api+"/categorias", token, map[string]string{"nome": "Mercado", "tipo": "despesa"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	groceriesID := int64(decode[map[string]any](t, resp)["id_categoria"].(float64))

	post := func(desc string, amount float64, date, kind string, cat int64) *http.Response {
		return doJSON(t, http.MethodPost, api+"/transacoes", token, map[string]any{
			"descricao": desc, "valor": amount, "data": date, "tipo": kind, "id_categoria": cat,
		})
	}
	require.Equal(t, http.StatusCreated, post("Salário março", 5000, "2026-03-05", "receita", salaryID).StatusCode)
	require.Equal(t, http.StatusCreated, post("Feira", 120.35, "2026-03-10", "despesa", groceriesID).StatusCode)
	require.Equal(t, http.StatusCreated, post("Feira abril", 80, "2026-04-02", "despesa", groceriesID).StatusCode)

	// Kind must match the category.
	assert.Equal(t, http.StatusBadRequest, post("Mismatch", 1, "2026-03-01", "receita", groceriesID).StatusCode)
	// Amount must be positive.
	assert.Equal(t, http.StatusBadRequest, post("Zero", 0, "2026-03-01", "despesa", groceriesID).StatusCode)

	resp = doJSON(t, http.MethodGet, api+"/transacoes?tipo=despesa", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]map[string]any](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-04-02", list[0]["data"], "newest first")
	assert.Equal(t, "Mercado", list[0]["nome_categoria"])

	resp = doJSON(t, http.MethodGet, api+"/transacoes/resumo?data_inicio=2026-03-01&data_fim=2026-03-31", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sum := decode[sandbox.SummaryResponse](t, resp)
	assert.Equal(t, "5000.00", sum.Income)
	assert.Equal(t, "120.35", sum.Expense)
	assert.Equal(t, "4879.65", sum.Balance)

	// A category with transactions cannot be deleted.
	assert.Equal(t, http.StatusConflict, doJSON(t, http.MethodDelete, api+"/categorias/"+itoa(groceriesID), token, nil).StatusCode)
}

func TestOwnershipIsolation(t *testing.T) {
	_, srv := setupServer(t)
	api := srv.URL + "/api"
	ana := registerAndLogin(t, srv.URL, "ana@example.com")
	bob := registerAndLogin(t, srv.URL, "bob@example.com")

	resp := doJSON(t, http.MethodPost, api+"/categorias", ana, map[string]string{"nome": "Mercado", "tipo": "despesa"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := int64(decode[map[string]any](t, resp)["id_categoria"].(float64))

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, api+"/categorias/"+itoa(id), bob, nil).StatusCode)
	resp = doJSON(t, http.MethodGet, api+"/categorias", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]map[string]any](t, resp))
}

func TestFailNext(t *testing.T) {
	sb, srv := setupServer(t)
	token := registerAndLogin(t, srv.URL, "ana@example.com")

	sb.FailNext(http.MethodDelete, "/usuarios/deletar", http.StatusInternalServerError, "falhou")
	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/usuarios/deletar", token, nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "falhou", decode[sandbox.ErrorResponse](t, resp).Error)

	// The fault fires once.
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodDelete, srv.URL+"/api/usuarios/deletar", token, nil).StatusCode)
}

func TestOpenAPIServed(t *testing.T) {
	_, srv := setupServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/openapi.yaml", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "/transacoes/resumo")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
