package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/cli/config"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/usecase"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// sessionConfig groups the flags every session-bound command shares
type sessionConfig struct {
	repo    config.Repository
	api     config.API
	session config.Session
	bridge  config.Bridge
}

func (x *sessionConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.api.Flags()...)
	flags = append(flags, x.session.Flags()...)
	flags = append(flags, x.bridge.Flags()...)
	return flags
}

// runtime is a wired session and the stores it persists to
type runtime struct {
	session     *usecase.SessionUseCase
	credentials interfaces.CredentialStore
	close       func()
}

func (x *sessionConfig) build(ctx context.Context, version string, metrics *usecase.PreloadMetrics) (*runtime, error) {
	stores, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}
	closeStores := func() {
		if err := stores.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	}

	client, err := x.api.Configure(stores.Credentials)
	if err != nil {
		closeStores()
		return nil, err
	}

	opts, err := x.session.Options(version, metrics)
	if err != nil {
		closeStores()
		return nil, err
	}

	host := x.bridge.Configure()
	opts = append(opts,
		usecase.WithNavigator(host),
		usecase.WithHostNotifier(host),
	)

	uc := usecase.New(client, stores.Credentials, stores.Cache, opts...)

	return &runtime{
		session:     uc.Session,
		credentials: stores.Credentials,
		close:       closeStores,
	}, nil
}
