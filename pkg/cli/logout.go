package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func cmdLogout(version string) *cli.Command {
	var sessCfg sessionConfig

	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and clear the credential record and cache",
		Flags: sessCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := sessCfg.build(ctx, version, nil)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.session.Logout(ctx); err != nil {
				return err
			}
			if rt.session.Flow().Suppressed() {
				color.New(color.FgYellow).Fprintln(c.Root().Writer, "Logout suppressed")
				return nil
			}

			color.New(color.FgGreen).Fprintln(c.Root().Writer, "Logged out")
			return nil
		},
	}
}
