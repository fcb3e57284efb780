package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyz(t *testing.T) {
	up := NewController(pingFunc(func(context.Context) error { return nil }), 0)
	rec := httptest.NewRecorder()
	up.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"store":"ok"}}`, rec.Body.String())

	down := NewController(pingFunc(func(context.Context) error { return errors.New("conn refused") }), 0)
	rec = httptest.NewRecorder()
	down.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "conn refused")
}

func TestReadyz_PingTimeout(t *testing.T) {
	slow := NewController(pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), 20*time.Millisecond)
	rec := httptest.NewRecorder()
	slow.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewController(nil, 0).Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
