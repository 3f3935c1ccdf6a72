package qradar

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandlerPrefersToken(t *testing.T) {
	handler, err := NewAuthHandler("token", "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, AuthTypeSECToken, handler.Type())

	req, err := http.NewRequest(http.MethodGet, "https://qradar/api/siem/offenses", nil)
	require.NoError(t, err)
	handler.Apply(req)

	assert.Equal(t, "token", req.Header.Get("SEC"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestAuthHandlerBasicAuth(t *testing.T) {
	handler, err := NewAuthHandler("", "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, AuthTypeBasicAuth, handler.Type())

	req, err := http.NewRequest(http.MethodGet, "https://qradar/api/siem/offenses", nil)
	require.NoError(t, err)
	handler.Apply(req)

	user, pass, ok := req.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "admin", user)
	assert.Equal(t, "secret", pass)
	assert.Empty(t, req.Header.Get("SEC"))
}

func TestAuthHandlerRequiresCredentials(t *testing.T) {
	_, err := NewAuthHandler("", "", "")
	assert.Error(t, err)

	_, err = NewAuthHandler("", "admin", "")
	assert.Error(t, err)
}
