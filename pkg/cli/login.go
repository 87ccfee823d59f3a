package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/usecase"
	"github.com/secmon-lab/kizuna/pkg/utils/errutil"
	"github.com/urfave/cli/v3"
)

func cmdLogin(version string) *cli.Command {
	var id string
	var password string
	var wait time.Duration
	var sessCfg sessionConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Login ID",
			Sources:     cli.EnvVars("KIZUNA_LOGIN_ID"),
			Destination: &id,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "Password",
			Sources:     cli.EnvVars("KIZUNA_PASSWORD"),
			Destination: &password,
		},
		&cli.DurationFlag{
			Name:        "wait-preload",
			Usage:       "How long to wait for the resource preload before exiting (0 skips waiting)",
			Value:       usecase.DefaultPreloadTimeout,
			Destination: &wait,
		},
	}
	flags = append(flags, sessCfg.Flags()...)

	return &cli.Command{
		Name:  "login",
		Usage: "Log in and store the credential record",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := sessCfg.build(ctx, version, nil)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.session.Login(ctx, model.Credentials{ID: id, Secret: password}); err != nil {
				msg := rt.session.State().Error
				if msg == "" {
					msg = usecase.MessageLoginFailed
				}
				color.New(color.FgRed).Fprintln(c.Root().ErrWriter, msg)
				return err
			}

			state := rt.session.State()
			color.New(color.FgGreen, color.Bold).Fprintf(c.Root().Writer, "Logged in as %s (%s)\n", state.User.Name, state.User.ID)

			if wait > 0 {
				waitCtx, cancel := context.WithTimeout(ctx, wait)
				defer cancel()
				if err := rt.session.WaitPreload(waitCtx); err != nil {
					errutil.Warn(ctx, goerr.Wrap(err, "preload did not finish"), "preload wait aborted")
					fmt.Fprintln(c.Root().Writer, color.YellowString("Preload did not finish in %s", wait))
					return nil
				}
				fmt.Fprintln(c.Root().Writer, "Preload completed")
			}
			return nil
		},
	}
}
