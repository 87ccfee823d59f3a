package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/domain/model/session"
	"github.com/urfave/cli/v3"
)

func cmdStatus(version string) *cli.Command {
	var sessCfg sessionConfig

	return &cli.Command{
		Name:  "status",
		Usage: "Restore the session from the stored credential and show it",
		Flags: sessCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := sessCfg.build(ctx, version, nil)
			if err != nil {
				return err
			}
			defer rt.close()

			rt.session.Initialize(ctx)

			record, err := rt.credentials.Read(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to read credential record")
			}

			var expiresAt time.Time
			if record != nil {
				expiresAt = rt.session.TokenGuard().ExpiresAt(record)
			}
			printStatus(c.Root().Writer, rt.session.State(), record, expiresAt)
			return nil
		},
	}
}

func printStatus(w io.Writer, state session.State, record *auth.CredentialRecord, expiresAt time.Time) {
	label := color.New(color.Bold).SprintFunc()

	status := string(state.Status)
	switch state.Status {
	case session.StatusAuthenticated:
		status = color.GreenString(status)
	case session.StatusError:
		status = color.RedString(status)
	default:
		status = color.YellowString(status)
	}
	fmt.Fprintf(w, "%s %s\n", label("Status:"), status)

	if state.Error != "" {
		fmt.Fprintf(w, "%s %s\n", label("Error:"), color.RedString(state.Error))
	}
	if state.User == nil {
		return
	}

	fmt.Fprintf(w, "%s %s (%s)\n", label("User:"), state.User.Name, state.User.ID)
	if record != nil {
		fmt.Fprintf(w, "%s %s\n", label("Token valid until:"), expiresAt.Local().Format(time.RFC3339))
	}

	fmt.Fprintf(w, "%s\n", label("Groups:"))
	for _, g := range state.User.Groups {
		fmt.Fprintf(w, "  - %s [%s] %s, %d members\n", g.Title, g.ID, g.Role, g.MemberCount)
	}
}
