package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/cardroom/internal/auth"
	"github.com/cardroomlabs/cardroom/internal/config"
	"github.com/cardroomlabs/cardroom/internal/money"
	"github.com/cardroomlabs/cardroom/internal/payments"
	"github.com/cardroomlabs/cardroom/internal/server"
	"github.com/cardroomlabs/cardroom/internal/store"
	"github.com/cardroomlabs/cardroom/internal/wallet"
)

const testToken = "test-token"

type fixture struct {
	admin    *Server
	svc      *server.Service
	provider *payments.Fake
	user     store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := log.New(io.Discard)
	clock := quartz.NewMock(t)
	provider := payments.NewFake()

	settings, err := config.LoadRuntime(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	authSvc := auth.New(db, logger)
	walletSvc := wallet.New(db, provider, logger)
	sessions := server.NewRegistry(logger, clock, server.DefaultGraceWindow)
	svc := server.NewService(db, authSvc, walletSvc, sessions, settings, logger, clock)

	reg := prometheus.NewRegistry()
	svc.SetMetrics(server.NewMetrics(reg))

	ctx := context.Background()
	u, err := authSvc.Register(ctx, "alice", "alice@example.com", "password123", 0, "blue")
	require.NoError(t, err)
	require.NoError(t, walletSvc.AdminAdjust(ctx, u.ID, money.Cents(50000), "seed"))

	return &fixture{
		admin:    New("localhost:0", svc, settings, reg, testToken, logger),
		svc:      svc,
		provider: provider,
		user:     u,
	}
}

func (f *fixture) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	f.admin.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRequiresBearerToken(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	w := httptest.NewRecorder()
	f.admin.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	f.admin.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Health and metrics stay open.
	w = httptest.NewRecorder()
	f.admin.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.admin.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnconfiguredTokenLocksAPI(t *testing.T) {
	f := newFixture(t)
	f.admin.token = ""

	w := f.request(t, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListUsersIncludesBalance(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, w.Code)

	users := decode(t, w)["users"].([]any)
	require.Len(t, users, 1)
	entry := users[0].(map[string]any)
	assert.Equal(t, "alice", entry["username"])
	assert.InDelta(t, 500.0, entry["balance"], 1e-9)
}

func TestAdjustBalance(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/admin/users/1/adjust",
		map[string]any{"amount": 25.50, "description": "goodwill credit"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 525.50, decode(t, w)["balance"], 1e-9)

	// A debit below zero is refused.
	w = f.request(t, http.MethodPost, "/api/admin/users/1/adjust",
		map[string]any{"amount": -10000.0})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBanBlocksLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.request(t, http.MethodPost, "/api/admin/users/1/ban", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := f.svc.Auth().Login(ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, auth.ErrSuspended)

	w = f.request(t, http.MethodPost, "/api/admin/users/1/unban", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err = f.svc.Auth().Login(ctx, "alice@example.com", "password123")
	assert.NoError(t, err)
}

func TestWithdrawalApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.svc.Wallet().Withdraw(ctx, f.user.ID, money.Cents(20000), "alice@example.com")
	require.NoError(t, err)

	w := f.request(t, http.MethodGet, "/api/admin/withdrawals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode(t, w)["withdrawals"].([]any)
	require.Len(t, pending, 1)
	entry := pending[0].(map[string]any)
	assert.Equal(t, txn.ID, entry["id"])
	assert.InDelta(t, 200.0, entry["amount"], 1e-9)
	assert.Equal(t, "alice@example.com", entry["destination"])

	w = f.request(t, http.MethodPost, "/api/admin/withdrawals/"+txn.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	payouts := f.provider.Payouts()
	require.Len(t, payouts, 1)
	assert.Equal(t, "alice@example.com", payouts[0].Receiver)
	assert.Equal(t, money.Cents(20000), payouts[0].Amount)

	// Already settled: a second approval is refused.
	w = f.request(t, http.MethodPost, "/api/admin/withdrawals/"+txn.ID+"/approve", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestWithdrawalRejectionRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.svc.Wallet().Withdraw(ctx, f.user.ID, money.Cents(20000), "alice@example.com")
	require.NoError(t, err)

	w := f.request(t, http.MethodPost, "/api/admin/withdrawals/"+txn.ID+"/reject", nil)
	require.Equal(t, http.StatusOK, w.Code)

	balance, err := f.svc.Wallet().Balance(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(50000), balance)
	assert.Empty(t, f.provider.Payouts())
}

func TestTableManagement(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/admin/tables", map[string]any{
		"name":        "Midnight",
		"small_blind": 1.0,
		"big_blind":   2.0,
		"min_buy_in":  100.0,
		"max_buy_in":  1000.0,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.request(t, http.MethodGet, "/api/admin/tables", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tables := decode(t, w)["tables"].([]any)
	require.Len(t, tables, 1)

	// Empty tables can be reconfigured.
	w = f.request(t, http.MethodPut, "/api/admin/tables/Midnight", map[string]any{
		"name":        "Midnight",
		"small_blind": 2.0,
		"big_blind":   4.0,
		"min_buy_in":  200.0,
		"max_buy_in":  2000.0,
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode(t, w)["table"].(map[string]any)
	assert.InDelta(t, 4.0, updated["big_blind"], 1e-9)

	w = f.request(t, http.MethodDelete, "/api/admin/tables/Midnight", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodDelete, "/api/admin/tables/Midnight", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReactivateFriendGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.svc.CreateFriendGame(ctx, f.user.ID, store.PrivateGame{
		Name:       "Friday Night",
		SmallBlind: money.Cents(50),
		BigBlind:   money.Cents(100),
		MinBuyIn:   money.Cents(2000),
		MaxBuyIn:   money.Cents(10000),
		MaxSeats:   6,
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteFriendGame(ctx, f.user.ID, info.TableID))

	w := f.request(t, http.MethodPost, "/api/admin/tables/"+info.TableID+"/reactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	table := decode(t, w)["table"].(map[string]any)
	assert.Equal(t, "Friday Night", table["name"])

	// Already running now.
	w = f.request(t, http.MethodPost, "/api/admin/tables/"+info.TableID+"/reactivate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRuntimeConfigRoundTrip(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/admin/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode(t, w)
	assert.Equal(t, false, cfg["maintenance_mode"])
	assert.InDelta(t, 30, cfg["turn_timer_seconds"], 0)

	on := true
	secs := 45
	w = f.request(t, http.MethodPut, "/api/admin/config",
		putConfigRequest{MaintenanceMode: &on, TurnTimerSeconds: &secs})
	require.Equal(t, http.StatusOK, w.Code)
	cfg = decode(t, w)
	assert.Equal(t, true, cfg["maintenance_mode"])
	assert.InDelta(t, 45, cfg["turn_timer_seconds"], 0)

	bad := 2
	w = f.request(t, http.MethodPut, "/api/admin/config",
		putConfigRequest{TurnTimerSeconds: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotifyCountsRecipients(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/admin/notify",
		map[string]any{"message": "server restart at midnight"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0, decode(t, w)["notified"], 0)

	w = f.request(t, http.MethodPost, "/api/admin/notify", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
