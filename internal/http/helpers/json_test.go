package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/siteconnect/internal/http/errors"
)

func TestReadParams_QueryAndJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/do_action?action=update_options&x=1",
		strings.NewReader(`{"x": 2, "update": {"a": "b"}}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	p, err := ReadParams(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "update_options", p.String("action"))
	assert.Equal(t, json.Number("2"), p["x"], "el body pisa a la query")
	assert.Equal(t, int64(2), p.Int64("x"))

	var upd map[string]string
	require.NoError(t, p.Decode("update", &upd))
	assert.Equal(t, "b", upd["a"])
}

func TestReadParams_Form(t *testing.T) {
	form := url.Values{"activation_secret": {"abc"}, "blog_id": {"12"}}
	req := httptest.NewRequest(http.MethodPost, "/verify_registration", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p, err := ReadParams(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "abc", p.String("activation_secret"))
	assert.Equal(t, int64(12), p.Int64("blog_id"))
}

func TestReadParams_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":`))
	req.Header.Set("Content-Type", "application/json")

	_, err := ReadParams(httptest.NewRecorder(), req)
	require.Error(t, err)
	assert.Equal(t, "invalid_json", errors.FromError(err).Code)
}

func TestReadParams_TooLarge(t *testing.T) {
	big := `{"a":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")

	_, err := ReadParams(httptest.NewRecorder(), req)
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, errors.FromError(err).HTTPStatus)
}

func TestReadParams_GetIgnoresBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?a=1", nil)
	p, err := ReadParams(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "1", p.String("a"))
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, true)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true\n", rec.Body.String())
}
