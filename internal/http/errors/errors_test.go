package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/siteconnect/internal/domain"
)

func TestFromError_DomainMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrMissingToken, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", domain.ErrUnauthorized), http.StatusUnauthorized},
		{domain.ErrInvalidRegistrationState, http.StatusBadRequest},
		{domain.ErrInvalidSecret, http.StatusUnauthorized},
		{domain.ErrMissingAction, http.StatusBadRequest},
		{domain.ErrForbiddenDomain, http.StatusUnprocessableEntity},
		{domain.ErrRemoteTransport, http.StatusBadGateway},
		{stderrors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		app := FromError(tc.err)
		assert.Equal(t, tc.status, app.HTTPStatus, tc.err.Error())
		if k := domain.Kind(tc.err); k != "internal" {
			assert.Equal(t, k, app.Code)
		}
		assert.ErrorIs(t, app, tc.err)
	}
}

func TestFromError_KeepsAppError(t *testing.T) {
	e := ErrBadRequest.WithDetail("x")
	assert.Same(t, e, FromError(fmt.Errorf("ctx: %w", e)))
	assert.Empty(t, ErrBadRequest.Detail, "WithDetail no muta el global")
}

func TestWriteError_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("verify token abc.def.ghi: %w", domain.ErrUnauthorized))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "abc.def.ghi")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["code"])
}
