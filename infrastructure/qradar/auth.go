package qradar

import (
	"fmt"
	"net/http"
)

// AuthType identifies how requests authenticate against QRadar
type AuthType string

const (
	AuthTypeSECToken  AuthType = "sec_token"
	AuthTypeBasicAuth AuthType = "basic_auth"
)

// AuthHandler adds QRadar credentials to outgoing requests. An authorized
// service token is sent in the SEC header; otherwise HTTP basic auth is used.
type AuthHandler struct {
	authType AuthType
	apiToken string
	username string
	password string
}

// NewAuthHandler creates a new QRadar authentication handler
func NewAuthHandler(apiToken, username, password string) (*AuthHandler, error) {
	if apiToken != "" {
		return &AuthHandler{authType: AuthTypeSECToken, apiToken: apiToken}, nil
	}

	if username == "" {
		return nil, fmt.Errorf("username is required for basic authentication")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required for basic authentication")
	}

	return &AuthHandler{
		authType: AuthTypeBasicAuth,
		username: username,
		password: password,
	}, nil
}

// Type returns the authentication type in use
func (a *AuthHandler) Type() AuthType {
	return a.authType
}

// Apply sets the authentication headers on req
func (a *AuthHandler) Apply(req *http.Request) {
	switch a.authType {
	case AuthTypeSECToken:
		req.Header.Set("SEC", a.apiToken)
	case AuthTypeBasicAuth:
		req.SetBasicAuth(a.username, a.password)
	}
}
