package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
)

func (c *Client) GetProfile(ctx context.Context, userID types.UserID) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID.String()), nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) GetGroups(ctx context.Context, userID types.UserID) ([]model.Group, error) {
	var groups []model.Group
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID.String())+"/groups", nil, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// UpdateProfile sends only the fields set in patch and returns the stored profile
func (c *Client) UpdateProfile(ctx context.Context, userID types.UserID, patch model.UserPatch) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID.String()), nil, &patch, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
