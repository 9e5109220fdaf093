package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/smartbank/internal/config"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository/docstore"
	"github.com/Dan9191/smartbank/internal/service"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	t      *testing.T
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	repo := docstore.NewMemory()
	t.Cleanup(func() { repo.Close() })
	cfg := &config.Config{
		JWTSecret:     "handler-test-secret",
		SessionTTL:    24 * time.Hour,
		IdleTimeout:   30 * time.Minute,
		EncryptionKey: strings.Repeat("0f", 32),
		DefaultRate:   4,
	}
	svc, err := service.NewService(repo, log, cfg, service.Options{HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	return &testAPI{t: t, router: NewHandler(svc, log).Router()}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signUp(email string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/register", "", map[string]string{
		"firstName": "Juan", "lastName": "Pérez", "email": email, "password": "pw123456",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": "pw123456"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decodeBody[map[string]string](t, rec)["error"]
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/register", "", map[string]string{
		"firstName": "Juan", "lastName": "Pérez", "email": "juan@test.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Juan Pérez", body["user"].(map[string]any)["name"])

	rec = api.do(http.MethodPost, "/api/register", "", map[string]string{
		"firstName": "Juan", "lastName": "Pérez", "email": "juan@test.com", "password": "pw123456",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/register", "", map[string]string{
		"firstName": "Ana", "lastName": "Ruiz", "email": "ana@test.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec), "password")

	rec = api.do(http.MethodPost, "/api/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/login", "", map[string]string{"email": "juan@test.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeBody[map[string]any](t, rec)
	assert.NotEmpty(t, login["token"])
	user := login["user"].(map[string]any)
	assert.Equal(t, "Juan", user["firstName"])
	assert.Equal(t, "USD", user["currency"])
}

func TestLoginLockout(t *testing.T) {
	api := newTestAPI(t)
	api.signUp("juan@test.com")

	for i := 0; i < 5; i++ {
		rec := api.do(http.MethodPost, "/api/login", "", map[string]string{"email": "juan@test.com", "password": "nope-nope"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := api.do(http.MethodPost, "/api/login", "", map[string]string{"email": "juan@test.com", "password": "pw123456"})
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/verify", "/api/user/data", "/api/transactions", "/api/export/transactions.csv"} {
		rec := api.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := api.do(http.MethodGet, "/api/verify", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyAndLogout(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("juan@test.com")

	rec := api.do(http.MethodGet, "/api/verify", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "juan@test.com", decodeBody[map[string]map[string]any](t, rec)["user"]["email"])

	rec = api.do(http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/api/verify", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransactionsAndCategories(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("juan@test.com")

	rec := api.do(http.MethodPost, "/api/categories", token, map[string]any{"name": "ocio", "budget": 200})
	assert.Equal(t, http.StatusConflict, rec.Code)

	for _, amount := range []int{50, 60} {
		rec = api.do(http.MethodPost, "/api/transactions", token, map[string]any{
			"type": "expense", "amount": amount, "category": "Ocio", "description": "Cine", "date": "2025-03-15",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	created := decodeBody[models.Transaction](t, rec)

	rec = api.do(http.MethodGet, "/api/transactions/"+strconv.FormatInt(created.ID, 10), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeBody[models.Transaction](t, rec).ID)

	categories := decodeBody[[]models.Category](t, api.do(http.MethodGet, "/api/categories", token, nil))
	var ocio models.Category
	for _, c := range categories {
		if c.Name == "Ocio" {
			ocio = c
		}
	}
	assert.True(t, ocio.Spent.Equal(decimal.NewFromInt(110)), ocio.Spent.String())

	rec = api.do(http.MethodGet, "/api/transactions?category=ocio&limit=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Transaction](t, rec), 1)

	rec = api.do(http.MethodGet, "/api/transactions?type=gift", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, "/api/transactions/"+strconv.FormatInt(created.ID, 10), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodDelete, "/api/transactions/"+strconv.FormatInt(created.ID, 10), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodGet, "/api/transactions/"+strconv.FormatInt(created.ID, 10), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/api/categories/"+strconv.FormatInt(ocio.ID, 10)+"/recompute", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[models.Category](t, rec).Spent.Equal(decimal.NewFromInt(50)))

	rec = api.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": 5, "category": "Ocio", "description": "x", "date": "15/03/2025",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBankOperations(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("juan@test.com")

	banks := decodeBody[[]models.Bank](t, api.do(http.MethodGet, "/api/banks", token, nil))
	require.Len(t, banks, 1)
	main := strconv.FormatInt(banks[0].ID, 10)

	rec := api.do(http.MethodPost, "/api/banks/"+main+"/withdraw", token, map[string]any{"amount": 6000})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodPost, "/api/banks/"+main+"/withdraw", token, map[string]any{"amount": "100.25"})
	require.Equal(t, http.StatusOK, rec.Code)
	withdrawn := decodeBody[struct {
		Bank        models.Bank        `json:"bank"`
		Transaction models.Transaction `json:"transaction"`
	}](t, rec)
	assert.True(t, withdrawn.Bank.Balance.Equal(decimal.RequireFromString("4899.75")))

	rec = api.do(http.MethodPost, "/api/banks", token, map[string]any{
		"name": "Ahorros", "type": "savings", "currency": "USD", "accountNumber": "1234 5678 9012",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	savings := decodeBody[models.Bank](t, rec)
	assert.Equal(t, "****9012", savings.AccountNumber)

	rec = api.do(http.MethodGet, "/api/banks/"+strconv.FormatInt(savings.ID, 10)+"/account-number", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "123456789012", decodeBody[map[string]string](t, rec)["accountNumber"])
	rec = api.do(http.MethodGet, "/api/banks/"+main+"/account-number", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "****1234", decodeBody[map[string]string](t, rec)["accountNumber"])
	rec = api.do(http.MethodGet, "/api/banks/999/account-number", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/api/banks/"+main+"/transfer", token, map[string]any{"toBankId": banks[0].ID, "amount": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodPost, "/api/banks/"+main+"/transfer", token, map[string]any{"toBankId": savings.ID, "amount": 899.75})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/api/banks/"+main+"/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Transaction](t, rec), 4)

	rec = api.do(http.MethodGet, "/api/banks/"+strconv.FormatInt(savings.ID, 10)+"/forecast?months=6", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[models.BalanceForecast](t, rec).Monthly, 6)

	rec = api.do(http.MethodGet, "/api/banks/"+main+"/forecast?months=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodGet, "/api/banks/999/history", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptionsAndSettings(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("juan@test.com")

	rec := api.do(http.MethodPost, "/api/subscriptions", token, map[string]any{
		"name": "Spotify", "price": 9.99, "billingCycle": "monthly", "nextPayment": "2025-04-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decodeBody[models.Subscription](t, rec)
	assert.True(t, sub.Active)

	rec = api.do(http.MethodPost, "/api/subscriptions/"+strconv.FormatInt(sub.ID, 10)+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[models.Subscription](t, rec).Active)

	rec = api.do(http.MethodPut, "/api/user/settings", token, map[string]any{"theme": "dark", "currency": "eur"})
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decodeBody[models.Settings](t, rec)
	assert.Equal(t, "dark", settings.Theme)
	assert.Equal(t, "EUR", settings.Currency)

	rec = api.do(http.MethodPut, "/api/user/settings", token, map[string]any{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	data := decodeBody[models.UserData](t, api.do(http.MethodGet, "/api/user/data", token, nil))
	assert.Len(t, data.Subscriptions, 2)
	assert.Equal(t, "dark", data.Settings.Theme)
}

func TestSummary(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("juan@test.com")

	rec := api.do(http.MethodGet, "/api/summary?period=quarter", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[models.Summary](t, rec)
	assert.Equal(t, "quarter", summary.Period)
	assert.True(t, summary.Income.Equal(decimal.NewFromInt(5000)))

	rec = api.do(http.MethodGet, "/api/summary?period=century", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	juan := api.signUp("juan@test.com")

	rec := api.do(http.MethodGet, "/api/export/transactions.csv", juan, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	csvBody := rec.Body.String()
	assert.Contains(t, csvBody, "Salario Mensual")

	ana := api.signUp("ana@test.com")
	rec = api.do(http.MethodPost, "/api/import/transactions.csv", ana, csvBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decodeBody[map[string]int](t, rec)["imported"])

	rec = api.do(http.MethodPost, "/api/import/transactions.csv", ana, "date,description\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/export/transactions.xml", juan, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<statement owner="juan@test.com"`)

	for _, path := range []string{"/api/export/categories.csv", "/api/export/subscriptions.csv", "/api/export/data.json"} {
		rec = api.do(http.MethodGet, path, juan, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment", path)
	}
}

func TestImportRejectsMalformedCSV(t *testing.T) {
	api := newTestAPI(t)
	token := api.signUp("juan@test.com")
	header := "date,description,category,type,amount\n"

	cases := []struct {
		name string
		body string
		want int
	}{
		{"unterminated quote in row", header + "2025-01-02,\"Cine,Ocio,expense,10\n", http.StatusBadRequest},
		{"unterminated quote in header", "\"date,description\n2025-01-02,Cine\n", http.StatusBadRequest},
		{"body over limit", header + strings.Repeat("2025-01-02,Cine,Ocio,expense,10\n", 6<<20/32), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/import/transactions.csv", token, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "internal server error")
		})
	}

	rec := api.do(http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Transaction](t, rec), 2)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.Invalid("x", "y"), http.StatusBadRequest},
		{models.ErrWeakPassword, http.StatusBadRequest},
		{models.ErrDuplicateEmail, http.StatusBadRequest},
		{models.ErrDuplicateName, http.StatusConflict},
		{models.ErrNotFound, http.StatusNotFound},
		{models.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{models.ErrInvalidCredentials, http.StatusUnauthorized},
		{models.ErrInvalidSession, http.StatusUnauthorized},
		{models.ErrAccountLocked, http.StatusLocked},
		{fmt.Errorf("failed to read CSV line 9: %w", &http.MaxBytesError{Limit: maxBodyBytes}), http.StatusRequestEntityTooLarge},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
