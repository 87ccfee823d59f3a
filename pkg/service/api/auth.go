package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
)

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string             `json:"token"`
	User  *model.UserProfile `json:"user,omitempty"`
}

// VerifyCredentials exchanges a login ID and password for a token and the user profile
func (c *Client) VerifyCredentials(ctx context.Context, id, secret string) (*auth.VerifiedIdentity, error) {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, &loginRequest{ID: id, Password: secret}, &resp, anonymous())
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, goerr.Wrap(ErrInvalidCredentials, "login rejected", goerr.V("id", id))
		}
		return nil, err
	}

	if resp.Token == "" {
		return nil, goerr.New("login response has no token", goerr.V("id", id))
	}
	if err := resp.User.Validate(); err != nil {
		return nil, goerr.Wrap(err, "login response has no valid user", goerr.V("id", id))
	}

	return &auth.VerifiedIdentity{User: resp.User, Token: resp.Token}, nil
}

// RefreshToken exchanges a stale token for a new one
func (c *Client) RefreshToken(ctx context.Context, token string) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, nil, &resp, withToken(token)); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", goerr.New("refresh response has no token")
	}
	return resp.Token, nil
}

// SignOut revokes the current token on the backend
func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}
