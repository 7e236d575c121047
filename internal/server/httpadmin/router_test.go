package httpadmin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/lockout"
	"github.com/dmitrijs2005/busauth/internal/server/metrics"
	"github.com/dmitrijs2005/busauth/internal/server/repositories/properties"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, fail bool) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ping := mock.ExpectPing()
	if fail {
		ping.WillReturnError(errors.New("connection refused"))
	}

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.RecordLogin(metrics.OutcomeSuccess)

	return NewRouter(Deps{Gatherer: reg, DB: db, Logger: logging.Nop{}}), mock
}

func TestHealthz(t *testing.T) {
	h, mock := newTestRouter(t, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthz_DatabaseDown(t *testing.T) {
	h, _ := newTestRouter(t, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestMetrics(t *testing.T) {
	h, _ := newTestRouter(t, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `outcome="success"`)
}

func TestServer_Run(t *testing.T) {
	s := NewServer("127.0.0.1:0", http.NotFoundHandler(), logging.Nop{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

type failingLockout struct{}

func (failingLockout) CheckLock(context.Context, string) (lockout.Status, error) {
	return lockout.Status{}, errors.New("redis down")
}
func (failingLockout) Attempts(context.Context, string) (int64, error) { return 0, nil }
func (failingLockout) ResetAttempts(context.Context, string) error     { return errors.New("redis down") }

func newLockoutRouter(t *testing.T, l Lockout) http.Handler {
	t.Helper()
	return NewRouter(Deps{Gatherer: prometheus.NewRegistry(), Lockout: l, Logger: logging.Nop{}})
}

func TestLockoutStatusAndReset(t *testing.T) {
	ctx := context.Background()
	tr := lockout.NewTracker(properties.NewMemoryStore(time.Hour), lockout.Config{MaxAttempts: 2, Window: 30 * time.Minute})
	h := newLockoutRouter(t, tr)

	for i := 0; i < 2; i++ {
		_, _, err := tr.IncrementAttempts(ctx, "joao")
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lockout/JOAO", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"joao","attempts":2,"locked":true,"minutesRemaining":30}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/lockout/joao", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lockout/joao", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"joao","attempts":0,"locked":false}`, rec.Body.String())
}

func TestLockout_StoreErrors(t *testing.T) {
	h := newLockoutRouter(t, failingLockout{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lockout/joao", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis down")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/lockout/joao", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLockout_NotRoutedWithoutTracker(t *testing.T) {
	h, _ := newTestRouter(t, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lockout/joao", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
