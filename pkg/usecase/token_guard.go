package usecase

import (
	"context"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/utils/errutil"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
	"github.com/secmon-lab/kizuna/pkg/utils/safe"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTokenLifetime      = 24 * time.Hour
	DefaultTokenRefreshMargin = 5 * time.Minute
)

// TokenGuard decides whether the stored credential is usable and refreshes it
// when it is stale.
type TokenGuard struct {
	store     interfaces.CredentialStore
	refresher interfaces.TokenRefresher
	lifetime  time.Duration
	margin    time.Duration
	now       func() time.Time
	flight    singleflight.Group
}

type TokenGuardOption func(*TokenGuard)

// WithTokenLifetime sets how long a token without an exp claim stays fresh after issue
func WithTokenLifetime(d time.Duration) TokenGuardOption {
	return func(g *TokenGuard) {
		g.lifetime = d
	}
}

// WithRefreshMargin sets how long before the exp claim a token is considered stale
func WithRefreshMargin(d time.Duration) TokenGuardOption {
	return func(g *TokenGuard) {
		g.margin = d
	}
}

// WithTokenClock replaces the clock, for tests
func WithTokenClock(now func() time.Time) TokenGuardOption {
	return func(g *TokenGuard) {
		g.now = now
	}
}

func NewTokenGuard(store interfaces.CredentialStore, refresher interfaces.TokenRefresher, opts ...TokenGuardOption) *TokenGuard {
	g := &TokenGuard{
		store:     store,
		refresher: refresher,
		lifetime:  DefaultTokenLifetime,
		margin:    DefaultTokenRefreshMargin,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ValidateAndRefresh returns true when a usable token is stored after the call.
// A stale token is refreshed and written back. Every failure yields false;
// concurrent callers share one in-flight check.
func (g *TokenGuard) ValidateAndRefresh(ctx context.Context) bool {
	v, _, _ := g.flight.Do("validate", func() (any, error) {
		ok := false
		err := safe.Run(ctx, "token guard", func(ctx context.Context) error {
			ok = g.validateAndRefresh(ctx)
			return nil
		})
		if err != nil {
			errutil.Warn(ctx, err, "token guard aborted")
			return false, nil
		}
		return ok, nil
	})
	return v.(bool)
}

func (g *TokenGuard) validateAndRefresh(ctx context.Context) bool {
	logger := logging.From(ctx)

	record, err := g.store.Read(ctx)
	if err != nil {
		errutil.Warn(ctx, err, "failed to read credential record")
		return false
	}
	if record == nil {
		logger.Debug("no credential record stored")
		return false
	}

	if g.IsFresh(record) {
		return true
	}

	logger.Info("token is stale, refreshing", "user_id", record.User.ID)
	token, err := g.refresher.RefreshToken(ctx, record.Token)
	if err != nil {
		errutil.Warn(ctx, err, "failed to refresh token")
		return false
	}

	if err := g.store.Write(ctx, record.Renew(token, g.now())); err != nil {
		errutil.Warn(ctx, err, "failed to store refreshed token")
		return false
	}

	logger.Info("token refreshed", "user_id", record.User.ID)
	return true
}

// IsFresh reports whether the record can be used without a refresh
func (g *TokenGuard) IsFresh(record *auth.CredentialRecord) bool {
	if record == nil {
		return false
	}
	return g.now().Before(g.ExpiresAt(record))
}

// ExpiresAt returns the time after which the record needs a refresh. The JWT exp
// claim minus the refresh margin wins; opaque tokens expire a fixed lifetime after issue.
func (g *TokenGuard) ExpiresAt(record *auth.CredentialRecord) time.Time {
	if record == nil {
		return time.Time{}
	}
	if token, err := jwt.ParseInsecure([]byte(record.Token)); err == nil {
		if exp := token.Expiration(); !exp.IsZero() {
			return exp.Add(-g.margin)
		}
	}
	return record.IssuedAt.Add(g.lifetime)
}
