package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserFromHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/connect_url", nil)
	req.Header.Set(HeaderUserID, " 12 ")
	req.Header.Set(HeaderUserEmail, "ana@example.com")
	req.Header.Set(HeaderUserLogin, "ana")

	u := userFromHeaders(req)
	assert.Equal(t, int64(12), u.ID)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, "ana", u.Login)

	req.Header.Set(HeaderUserID, "abc")
	assert.Zero(t, userFromHeaders(req).ID)
}
