package interfaces

import (
	"context"

	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
)

// Verifier verifies login credentials against the backend
type Verifier interface {
	VerifyCredentials(ctx context.Context, id, secret string) (*auth.VerifiedIdentity, error)
}

// TokenRefresher exchanges a stale token for a new one
type TokenRefresher interface {
	RefreshToken(ctx context.Context, token string) (string, error)
}

// SignOuter revokes the session on the backend
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// ProfileUpdater persists profile changes remotely
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, userID types.UserID, patch model.UserPatch) (*model.UserProfile, error)
}

// ResourceFetcher fetches every resource the preloader caches
type ResourceFetcher interface {
	GetProfile(ctx context.Context, userID types.UserID) (*model.UserProfile, error)
	GetGroups(ctx context.Context, userID types.UserID) ([]model.Group, error)
	GetGroupMembers(ctx context.Context, groupID types.GroupID) ([]model.Member, error)
	GetSchedules(ctx context.Context, groupID types.GroupID, period string) ([]model.Schedule, error)
	GetPlaces(ctx context.Context, groupID types.GroupID) ([]model.Place, error)
	GetLocationAggregate(ctx context.Context, groupID types.GroupID, date string) (*model.LocationAggregate, error)
	GetDailyLocationCounts(ctx context.Context, groupID types.GroupID, period string) ([]model.LocationCount, error)
}

// Backend is everything the session layer needs from the remote API
type Backend interface {
	Verifier
	TokenRefresher
	SignOuter
	ProfileUpdater
	ResourceFetcher
}
