package trainapi

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/session"
)

var _ session.AuthClient = (*Client)(nil)

type (
	// wire shapes of the account-type-specific auth endpoints
	wireIdentity struct {
		ID            int         `json:"id"`
		Name          null.String `json:"name"`
		Email         string      `json:"email"`
		Role          null.String `json:"role"`
		IsAdmin       bool        `json:"is_admin"`
		IsSystemAdmin bool        `json:"is_system_admin"`
	}

	loginResponse struct {
		Status string `json:"status"`
		Data   struct {
			User          *wireIdentity                 `json:"user"`
			Admin         *wireIdentity                 `json:"admin"`
			AccessToken   string                        `json:"access_token"`
			Token         string                        `json:"token"`
			Organizations []session.OrganizationSummary `json:"organizations"`
		} `json:"data"`
	}
)

// Login authenticates against the account-type-specific endpoint. A rejected
// login surfaces the server-supplied message as a session.AuthError.
func (c *Client) Login(ctx context.Context, at session.AccountType, creds session.Credentials) (session.LoginResult, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/"+string(at)+"/login", nil, creds, &resp); err != nil {
		if apiErr, ok := errors.Cause(err).(*APIError); ok {
			return session.LoginResult{}, &session.AuthError{Message: apiErr.Message}
		}
		return session.LoginResult{}, errors.Wrap(err, "authenticating")
	}

	wire := resp.Data.User
	isAdminAccount := false
	if wire == nil {
		wire = resp.Data.Admin
		isAdminAccount = wire != nil
	}
	if wire == nil {
		return session.LoginResult{}, &session.AuthError{Message: "authentication failed"}
	}

	token := resp.Data.AccessToken
	if token == "" {
		token = resp.Data.Token
	}
	if token == "" {
		return session.LoginResult{}, &session.AuthError{Message: "authentication failed"}
	}

	ident := session.Identity{
		ID:            wire.ID,
		Name:          wire.Name.String,
		Email:         wire.Email,
		Role:          wire.Role.String,
		IsSystemAdmin: wire.IsSystemAdmin,
		IsOrgAdmin:    wire.IsAdmin,
	}
	if isAdminAccount && ident.Role == "" {
		ident.Role = "admin"
	}

	return session.LoginResult{
		Token:         token,
		Identity:      ident,
		Organizations: resp.Data.Organizations,
	}, nil
}

// Logout calls the account-type-specific remote logout endpoint.
func (c *Client) Logout(ctx context.Context, at session.AccountType) error {
	return c.do(ctx, http.MethodPost, "/auth/"+string(at)+"/logout", nil, nil, nil)
}
