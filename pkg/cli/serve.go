package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	httpctrl "github.com/secmon-lab/kizuna/pkg/controller/http"
	"github.com/secmon-lab/kizuna/pkg/service/worker"
	"github.com/secmon-lab/kizuna/pkg/usecase"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var enableMetrics bool
	var sessCfg sessionConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address the native host connects to",
			Value:       "127.0.0.1:8931",
			Sources:     cli.EnvVars("KIZUNA_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "metrics",
			Usage:       "Expose Prometheus metrics at /metrics",
			Value:       true,
			Sources:     cli.EnvVars("KIZUNA_METRICS"),
			Destination: &enableMetrics,
		},
	}
	flags = append(flags, sessCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the session and serve the host bridge API",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := usecase.NewPreloadMetrics(registry)
			if err != nil {
				return goerr.Wrap(err, "failed to register preload metrics")
			}

			rt, err := sessCfg.build(ctx, version, metrics)
			if err != nil {
				return err
			}
			defer rt.close()

			// Restore the previous session before the host starts sending events
			rt.session.Initialize(ctx)

			var keeper *worker.SessionKeeperWorker
			if interval := sessCfg.session.RefreshInterval(); interval > 0 {
				keeper = worker.NewSessionKeeperWorker(rt.session, interval)
				if err := keeper.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start session keeper")
				}
			}

			httpOpts := []httpctrl.Options{}
			if enableMetrics {
				httpOpts = append(httpOpts, httpctrl.WithMetrics(registry))
			}
			if token := sessCfg.bridge.Token(); token != "" {
				httpOpts = append(httpOpts, httpctrl.WithBridgeToken(token))
			} else {
				logging.Default().Warn("bridge-token is not set, the host API is unauthenticated")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(rt.session, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "metrics", enableMetrics)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if keeper != nil {
					keeper.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if keeper != nil {
					keeper.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
