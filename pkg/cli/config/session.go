package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/model/session"
	"github.com/secmon-lab/kizuna/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Session holds CLI flags for the session lifecycle and the preloader
type Session struct {
	preloadTimeout     time.Duration
	preloadCooldown    time.Duration
	preloadConcurrency int
	tokenLifetime      time.Duration
	refreshMargin      time.Duration
	refreshInterval    time.Duration
	platform           string
	blockRedirects     bool
}

// Flags returns CLI flags for session configuration
func (s *Session) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "preload-timeout",
			Usage:       "Watchdog timeout of a preload run",
			Value:       usecase.DefaultPreloadTimeout,
			Category:    "Session",
			Sources:     cli.EnvVars("KIZUNA_PRELOAD_TIMEOUT"),
			Destination: &s.preloadTimeout,
		},
		&cli.DurationFlag{
			Name:        "preload-cooldown",
			Usage:       "Window in which a completed preload for the same user is not repeated",
			Value:       usecase.DefaultPreloadCooldown,
			Category:    "Session",
			Sources:     cli.EnvVars("KIZUNA_PRELOAD_COOLDOWN"),
			Destination: &s.preloadCooldown,
		},
		&cli.IntFlag{
			Name:        "preload-concurrency",
			Usage:       "Maximum number of concurrent preload fetches",
			Value:       8,
			Category:    "Session",
			Sources:     cli.EnvVars("KIZUNA_PRELOAD_CONCURRENCY"),
			Destination: &s.preloadConcurrency,
		},
		&cli.DurationFlag{
			Name:        "token-lifetime",
			Usage:       "Assumed lifetime of a token that carries no exp claim",
			Value:       usecase.DefaultTokenLifetime,
			Category:    "Session",
			Sources:     cli.EnvVars("KIZUNA_TOKEN_LIFETIME"),
			Destination: &s.tokenLifetime,
		},
		&cli.DurationFlag{
			Name:        "token-refresh-margin",
			Usage:       "Refresh the token this long before it expires",
			Value:       usecase.DefaultTokenRefreshMargin,
			Category:    "Session",
			Sources:     cli.EnvVars("KIZUNA_TOKEN_REFRESH_MARGIN"),
			Destination: &s.refreshMargin,
		},
		&cli.DurationFlag{
			Name:        "refresh-interval",
			Usage:       "Interval of the background session reconciliation (0 disables it)",
			Value:       5 * time.Minute,
			Category:    "Session",
			Sources:     cli.EnvVars("KIZUNA_REFRESH_INTERVAL"),
			Destination: &s.refreshInterval,
		},
		&cli.BoolFlag{
			Name:        "block-redirects",
			Usage:       "Start with redirects administratively blocked (login failures are absorbed and logout does nothing)",
			Category:    "Session",
			Sources:     cli.EnvVars("KIZUNA_BLOCK_REDIRECTS"),
			Destination: &s.blockRedirects,
		},
		&cli.StringFlag{
			Name:        "platform",
			Usage:       "Platform name reported in the session settings",
			Category:    "Session",
			Sources:     cli.EnvVars("KIZUNA_PLATFORM"),
			Destination: &s.platform,
		},
	}
}

// RefreshInterval returns the keeper interval; zero means disabled
func (s *Session) RefreshInterval() time.Duration {
	return s.refreshInterval
}

// Validate checks the durations are usable together
func (s *Session) Validate() error {
	if s.preloadTimeout <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "preload-timeout must be positive", goerr.V(ValueKey, s.preloadTimeout))
	}
	if s.preloadCooldown < 0 {
		return goerr.Wrap(ErrInvalidConfig, "preload-cooldown must not be negative", goerr.V(ValueKey, s.preloadCooldown))
	}
	if s.tokenLifetime <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "token-lifetime must be positive", goerr.V(ValueKey, s.tokenLifetime))
	}
	if s.refreshMargin < 0 || s.refreshMargin >= s.tokenLifetime {
		return goerr.Wrap(ErrInvalidConfig, "token-refresh-margin must be shorter than token-lifetime",
			goerr.V(ValueKey, s.refreshMargin),
			goerr.V("token_lifetime", s.tokenLifetime),
		)
	}
	if s.refreshInterval < 0 {
		return goerr.Wrap(ErrInvalidConfig, "refresh-interval must not be negative", goerr.V(ValueKey, s.refreshInterval))
	}
	return nil
}

// Options converts the flags into session use case options
func (s *Session) Options(version string, metrics *usecase.PreloadMetrics) ([]usecase.SessionOption, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	flow := usecase.NewFlowCoordinator()
	flow.SetRedirectsBlocked(s.blockRedirects)

	return []usecase.SessionOption{
		usecase.WithFlowCoordinator(flow),
		usecase.WithSettings(session.Settings{
			AppVersion: version,
			Platform:   s.platform,
		}),
		usecase.WithTokenGuardOptions(
			usecase.WithTokenLifetime(s.tokenLifetime),
			usecase.WithRefreshMargin(s.refreshMargin),
		),
		usecase.WithPreloaderOptions(
			usecase.WithPreloadTimeout(s.preloadTimeout),
			usecase.WithPreloadCooldown(s.preloadCooldown),
			usecase.WithPreloadConcurrency(s.preloadConcurrency),
			usecase.WithPreloadMetrics(metrics),
		),
	}, nil
}
