package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/service/api"
	"github.com/urfave/cli/v3"
)

// API holds CLI flags for the backend REST client
type API struct {
	baseURL  string
	timeout  time.Duration
	retryMax int
}

// Flags returns CLI flags for the backend API
func (a *API) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "api-base-url",
			Usage:       "Base URL of the backend API (e.g., https://api.example.com/v1)",
			Category:    "API",
			Sources:     cli.EnvVars("KIZUNA_API_BASE_URL"),
			Destination: &a.baseURL,
		},
		&cli.DurationFlag{
			Name:        "api-timeout",
			Usage:       "Timeout of a single backend request",
			Value:       15 * time.Second,
			Category:    "API",
			Sources:     cli.EnvVars("KIZUNA_API_TIMEOUT"),
			Destination: &a.timeout,
		},
		&cli.IntFlag{
			Name:        "api-retry-max",
			Usage:       "Maximum number of retries on transient backend failures",
			Value:       3,
			Category:    "API",
			Sources:     cli.EnvVars("KIZUNA_API_RETRY_MAX"),
			Destination: &a.retryMax,
		},
	}
}

// Configure creates the backend client. The client reads its bearer token from
// credentials.
func (a *API) Configure(credentials interfaces.CredentialStore) (*api.Client, error) {
	if a.baseURL == "" {
		return nil, goerr.Wrap(ErrMissingFlag, "api-base-url is required", goerr.V(FlagKey, "api-base-url"))
	}
	if a.retryMax < 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "api-retry-max must not be negative", goerr.V(ValueKey, a.retryMax))
	}

	client, err := api.New(a.baseURL, credentials,
		api.WithTimeout(a.timeout),
		api.WithRetryMax(a.retryMax),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create backend client")
	}
	return client, nil
}
