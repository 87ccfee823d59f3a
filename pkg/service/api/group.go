package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
)

func groupPath(groupID types.GroupID, resource string) string {
	return "/groups/" + url.PathEscape(groupID.String()) + "/" + resource
}

func (c *Client) GetGroupMembers(ctx context.Context, groupID types.GroupID) ([]model.Member, error) {
	var members []model.Member
	if err := c.do(ctx, http.MethodGet, groupPath(groupID, "members"), nil, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// GetSchedules returns the schedules of the month given as YYYY-MM
func (c *Client) GetSchedules(ctx context.Context, groupID types.GroupID, period string) ([]model.Schedule, error) {
	var schedules []model.Schedule
	query := url.Values{"period": {period}}
	if err := c.do(ctx, http.MethodGet, groupPath(groupID, "schedules"), query, nil, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (c *Client) GetPlaces(ctx context.Context, groupID types.GroupID) ([]model.Place, error) {
	var places []model.Place
	if err := c.do(ctx, http.MethodGet, groupPath(groupID, "places"), nil, nil, &places); err != nil {
		return nil, err
	}
	return places, nil
}

// GetLocationAggregate returns the location history of the day given as YYYY-MM-DD
func (c *Client) GetLocationAggregate(ctx context.Context, groupID types.GroupID, date string) (*model.LocationAggregate, error) {
	var aggregate model.LocationAggregate
	query := url.Values{"date": {date}}
	if err := c.do(ctx, http.MethodGet, groupPath(groupID, "locations/aggregate"), query, nil, &aggregate); err != nil {
		return nil, err
	}
	return &aggregate, nil
}

func (c *Client) GetDailyLocationCounts(ctx context.Context, groupID types.GroupID, period string) ([]model.LocationCount, error) {
	var counts []model.LocationCount
	query := url.Values{"month": {period}}
	if err := c.do(ctx, http.MethodGet, groupPath(groupID, "locations/daily-counts"), query, nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}
