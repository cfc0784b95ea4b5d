package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/recognition-bot/internal/features/balance"
	"serotonyl.ru/recognition-bot/internal/features/golden"
	"serotonyl.ru/recognition-bot/internal/features/influence"
	"serotonyl.ru/recognition-bot/internal/features/leaderboard"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/features/report"
	"serotonyl.ru/recognition-bot/internal/store/memory"
	"serotonyl.ru/recognition-bot/internal/testutil"
)

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, initialHolder int64) (*Server, *ledger.Service) {
	t.Helper()
	cfg := testutil.Config()
	cfg.GoldenInitialHolder = initialHolder
	st := memory.New()
	l := ledger.NewService(st, cfg, nil, nil)
	names := testutil.Names{1: "Аня", 2: "Боря"}
	return NewServer(Services{
		Leaderboard: leaderboard.NewService(l, cfg),
		Influence:   influence.NewService(l),
		Report:      report.NewService(l, cfg, names, nil),
		Balance:     balance.NewService(l, cfg),
		Golden:      golden.NewService(l, cfg, nil),
		Store:       st,
	}), l
}

func get(t *testing.T, s *Server, url string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, 0)
	rec, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	s.svc.Store = downStore{}
	rec, _ = get(t, s, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBalance(t *testing.T) {
	s, l := newTestServer(t, 0)
	for i := 0; i < 3; i++ {
		_, err := l.RecordGrant(context.Background(), ledger.GrantInput{Giver: 1, Receiver: 2, Message: "спасибо"})
		require.NoError(t, err)
	}

	rec, body := get(t, s, "/api/v1/users/2/balance")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.EqualValues(t, 2, body["user_id"])
	assert.EqualValues(t, 3, body["received"])
	assert.EqualValues(t, 3, body["balance"])

	rec, _ = get(t, s, "/api/v1/users/0/balance")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWindowParams(t *testing.T) {
	s, _ := newTestServer(t, 0)

	rec, body := get(t, s, "/api/v1/leaderboard?days=7")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, body["days"])

	rec, _ = get(t, s, "/api/v1/leaderboard?days=week")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, s, "/api/v1/metrics/daily?days=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = get(t, s, "/api/v1/metrics/daily?days=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["series"], 3)

	rec, body = get(t, s, "/api/v1/summary?tz=Mars/Olympus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "Mars/Olympus")
}

func TestGolden(t *testing.T) {
	s, _ := newTestServer(t, 0)
	rec, _ := get(t, s, "/api/v1/golden")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s, _ = newTestServer(t, 1)
	rec, body := get(t, s, "/api/v1/golden")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["holder"])
}
