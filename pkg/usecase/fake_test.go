package usecase_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
)

// fakeBackend is an in-process backend. Every call is counted by name; behavior
// is overridden through the function fields.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	verify        func(ctx context.Context, id, secret string) (*auth.VerifiedIdentity, error)
	refresh       func(ctx context.Context, token string) (string, error)
	signOut       func(ctx context.Context) error
	updateProfile func(ctx context.Context, userID types.UserID, patch model.UserPatch) (*model.UserProfile, error)
	profile       func(ctx context.Context, userID types.UserID) (*model.UserProfile, error)
	groups        func(ctx context.Context, userID types.UserID) ([]model.Group, error)
	members       func(ctx context.Context, groupID types.GroupID) ([]model.Member, error)
	schedules     func(ctx context.Context, groupID types.GroupID, period string) ([]model.Schedule, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) VerifyCredentials(ctx context.Context, id, secret string) (*auth.VerifiedIdentity, error) {
	f.record("verify")
	if f.verify != nil {
		return f.verify(ctx, id, secret)
	}
	if secret != "p" {
		return nil, goerr.Wrap(auth.ErrInvalidCredentials, "rejected")
	}
	return &auth.VerifiedIdentity{
		User:  &model.UserProfile{ID: "7", Name: "Alice"},
		Token: "t",
	}, nil
}

func (f *fakeBackend) RefreshToken(ctx context.Context, token string) (string, error) {
	f.record("refresh")
	if f.refresh != nil {
		return f.refresh(ctx, token)
	}
	return token + "-refreshed", nil
}

func (f *fakeBackend) SignOut(ctx context.Context) error {
	f.record("signout")
	if f.signOut != nil {
		return f.signOut(ctx)
	}
	return nil
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, userID types.UserID, patch model.UserPatch) (*model.UserProfile, error) {
	f.record("update")
	if f.updateProfile != nil {
		return f.updateProfile(ctx, userID, patch)
	}
	return patch.ApplyTo(&model.UserProfile{ID: userID}), nil
}

func (f *fakeBackend) GetProfile(ctx context.Context, userID types.UserID) (*model.UserProfile, error) {
	f.record("profile")
	if f.profile != nil {
		return f.profile(ctx, userID)
	}
	return &model.UserProfile{ID: userID, Name: "Alice"}, nil
}

func (f *fakeBackend) GetGroups(ctx context.Context, userID types.UserID) ([]model.Group, error) {
	f.record("groups")
	if f.groups != nil {
		return f.groups(ctx, userID)
	}
	return []model.Group{
		{ID: "g1", Title: "Home", MemberCount: 3, Role: types.GroupRoleOwner},
		{ID: "g2", Title: "Club", MemberCount: 9, Role: types.GroupRoleMember},
	}, nil
}

func (f *fakeBackend) GetGroupMembers(ctx context.Context, groupID types.GroupID) ([]model.Member, error) {
	f.record("members")
	if f.members != nil {
		return f.members(ctx, groupID)
	}
	return []model.Member{{UserID: "7", Name: "Alice"}}, nil
}

func (f *fakeBackend) GetSchedules(ctx context.Context, groupID types.GroupID, period string) ([]model.Schedule, error) {
	f.record("schedules")
	if f.schedules != nil {
		return f.schedules(ctx, groupID, period)
	}
	return []model.Schedule{{ID: "s1", GroupID: groupID}}, nil
}

func (f *fakeBackend) GetPlaces(ctx context.Context, groupID types.GroupID) ([]model.Place, error) {
	f.record("places")
	return []model.Place{{ID: "p1", GroupID: groupID}}, nil
}

func (f *fakeBackend) GetLocationAggregate(ctx context.Context, groupID types.GroupID, date string) (*model.LocationAggregate, error) {
	f.record("location")
	return &model.LocationAggregate{GroupID: groupID, Date: date}, nil
}

func (f *fakeBackend) GetDailyLocationCounts(ctx context.Context, groupID types.GroupID, period string) ([]model.LocationCount, error) {
	f.record("location-counts")
	return []model.LocationCount{{Date: period + "-01", Count: 1}}, nil
}

type fakeNavigator struct {
	redirects atomic.Int32
}

func (n *fakeNavigator) RedirectToEntryPoint(ctx context.Context) error {
	n.redirects.Add(1)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []model.HostEventName
}

func (n *fakeNotifier) NotifyHost(ctx context.Context, name model.HostEventName, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, name)
}

func (n *fakeNotifier) names() []model.HostEventName {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.HostEventName(nil), n.events...)
}
