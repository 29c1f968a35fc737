package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/internal/wallet-service/dto"
	"github.com/radieske/saltypredict/internal/wallet-service/repo"
)

type reservation struct {
	user   string
	amount int64
	status string
}

// memRepo reproduz as regras do repo Postgres em memória
type memRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	credits  map[string]bool
	reserved map[string]*reservation
}

func newMemRepo() *memRepo {
	return &memRepo{balances: map[string]int64{}, credits: map[string]bool{}, reserved: map[string]*reservation{}}
}

func (m *memRepo) GetOrCreateWallet(_ context.Context, userID string) (string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return "w-" + userID, m.balances[userID], nil
}

func (m *memRepo) Credit(_ context.Context, userID string, amount int64, ref string) (string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.credits[ref] {
		m.credits[ref] = true
		m.balances[userID] += amount
	}
	return "w-" + userID, m.balances[userID], nil
}

func (m *memRepo) Reserve(_ context.Context, userID string, amount int64, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reserved[ref]; ok {
		if r.status == "REFUNDED" || r.amount != amount {
			return "", repo.ErrRefConflict
		}
		return "res-" + ref, nil
	}
	if m.balances[userID] < amount {
		return "", repo.ErrInsufficientFunds
	}
	m.balances[userID] -= amount
	m.reserved[ref] = &reservation{user: userID, amount: amount, status: "PENDING"}
	return "res-" + ref, nil
}

func (m *memRepo) settle(userID, ref, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reserved[ref]
	if !ok || r.user != userID {
		return repo.ErrNotFound
	}
	switch r.status {
	case target:
		return nil
	case "PENDING":
	default:
		return repo.ErrAlreadySettled
	}
	if target == "REFUNDED" {
		m.balances[userID] += r.amount
	}
	r.status = target
	return nil
}

func (m *memRepo) Commit(_ context.Context, userID, ref string) error {
	return m.settle(userID, ref, "COMMITTED")
}

func (m *memRepo) Refund(_ context.Context, userID, ref string) error {
	return m.settle(userID, ref, "REFUNDED")
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func balance(t *testing.T, h http.Handler, user string) int64 {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet?userId="+user, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out dto.WalletResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out.BalanceUnits
}

func TestWalletEscrowFlow(t *testing.T) {
	h := NewServer(zap.NewNop(), newMemRepo()).Router()

	rec := post(t, h, "/wallet/deposit", `{"userId":"alice","amount_units":1000,"external_ref":"dep-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1000), balance(t, h, "alice"))

	rec = post(t, h, "/wallet/reserve", `{"userId":"alice","amount_units":400,"external_ref":"bet:1:alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(600), balance(t, h, "alice"))

	rec = post(t, h, "/wallet/commit", `{"userId":"alice","external_ref":"bet:1:alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"COMMITTED"}`, rec.Body.String())

	rec = post(t, h, "/wallet/refund", `{"userId":"alice","external_ref":"bet:1:alice"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int64(600), balance(t, h, "alice"))

	rec = post(t, h, "/wallet/reserve", `{"userId":"alice","amount_units":700,"external_ref":"bet:2:alice"}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = post(t, h, "/wallet/reserve", `{"userId":"alice","amount_units":100,"external_ref":"bet:2:alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = post(t, h, "/wallet/refund", `{"userId":"alice","external_ref":"bet:2:alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(600), balance(t, h, "alice"))

	// ref reembolsada não volta a valer como reserva
	rec = post(t, h, "/wallet/reserve", `{"userId":"alice","amount_units":500,"external_ref":"bet:2:alice"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int64(600), balance(t, h, "alice"))
}

func TestWalletCreditIsIdempotent(t *testing.T) {
	h := NewServer(zap.NewNop(), newMemRepo()).Router()

	for i := 0; i < 2; i++ {
		rec := post(t, h, "/wallet/credit", `{"userId":"bob","amount_units":1960,"external_ref":"claim:bob:1"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, int64(1960), balance(t, h, "bob"))
}

func TestWalletValidation(t *testing.T) {
	h := NewServer(zap.NewNop(), newMemRepo()).Router()

	cases := map[string]struct {
		path, body string
		want       int
	}{
		"bad json":            {"/wallet/reserve", `{`, http.StatusBadRequest},
		"missing ref":         {"/wallet/credit", `{"userId":"a","amount_units":1}`, http.StatusBadRequest},
		"zero amount":         {"/wallet/reserve", `{"userId":"a","amount_units":0,"external_ref":"x"}`, http.StatusBadRequest},
		"unknown reservation": {"/wallet/commit", `{"userId":"a","external_ref":"x"}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, post(t, h, tc.path, tc.body).Code)
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet/reserve", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
