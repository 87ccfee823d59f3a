package config

import (
	"github.com/secmon-lab/kizuna/pkg/service/bridge"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Bridge holds CLI flags for the native host bridge
type Bridge struct {
	callbackURL string
	token       string
	retryMax    int
}

// Flags returns CLI flags for the host bridge
func (b *Bridge) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "host-callback-url",
			Usage:       "URL the native host listens on for outgoing events",
			Category:    "Bridge",
			Sources:     cli.EnvVars("KIZUNA_HOST_CALLBACK_URL"),
			Destination: &b.callbackURL,
		},
		&cli.StringFlag{
			Name:        "bridge-token",
			Usage:       "Shared token the host must send with every API request",
			Category:    "Bridge",
			Sources:     cli.EnvVars("KIZUNA_BRIDGE_TOKEN"),
			Destination: &b.token,
		},
		&cli.IntFlag{
			Name:        "host-retry-max",
			Usage:       "Maximum number of retries when the host callback fails",
			Value:       2,
			Category:    "Bridge",
			Sources:     cli.EnvVars("KIZUNA_HOST_RETRY_MAX"),
			Destination: &b.retryMax,
		},
	}
}

// Token returns the shared bridge token; empty disables the check
func (b *Bridge) Token() string {
	return b.token
}

// Configure creates the bridge to the native host
func (b *Bridge) Configure() *bridge.Bridge {
	if b.callbackURL == "" {
		logging.Default().Warn("host-callback-url is not set, host events are only logged")
	}
	return bridge.New(b.callbackURL, bridge.WithRetryMax(b.retryMax))
}
