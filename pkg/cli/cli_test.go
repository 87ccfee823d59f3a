package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/kizuna/pkg/cli"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/domain/model/session"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
	"github.com/secmon-lab/kizuna/pkg/repository/file"
)

func newBackend(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var signOuts atomic.Int32
	user := model.UserProfile{ID: "7", Name: "Alice"}

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"token": "tok", "user": user})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		signOuts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /users/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, user)
	})
	mux.HandleFunc("GET /users/7/groups", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.Group{})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &signOuts
}

func TestLoginStatusLogout(t *testing.T) {
	srv, signOuts := newBackend(t)
	dir := t.TempDir()
	credFile := filepath.Join(dir, "credential.toml")
	logFile := filepath.Join(dir, "kizuna.log")
	ctx := context.Background()

	run := func(cmd string, args ...string) error {
		argv := []string{"kizuna", "--log-output", logFile, cmd,
			"--credential-file", credFile,
			"--api-base-url", srv.URL,
			"--api-retry-max", "0",
		}
		return cli.Run(ctx, append(argv, args...), "test")
	}

	gt.NoError(t, run("login", "--id", "7", "--password", "p", "--wait-preload", "0s")).Required()

	store := file.NewCredentialStore(credFile)
	record, err := store.Read(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, record).NotNil().Required()
	gt.Value(t, record.Token).Equal("tok")
	gt.Value(t, record.User.ID).Equal(types.UserID("7"))

	gt.NoError(t, run("status"))

	gt.NoError(t, run("logout"))
	gt.Number(t, signOuts.Load()).Equal(1)

	_, err = os.Stat(credFile)
	gt.Bool(t, os.IsNotExist(err)).True()
}

func TestLoginRequiresInput(t *testing.T) {
	srv, _ := newBackend(t)
	dir := t.TempDir()

	err := cli.Run(context.Background(), []string{"kizuna",
		"--log-output", filepath.Join(dir, "kizuna.log"),
		"login",
		"--credential-backend", "memory",
		"--api-base-url", srv.URL,
		"--id", "7",
	}, "test")
	gt.Error(t, err)
}

func TestPrintStatus(t *testing.T) {
	color.NoColor = true

	t.Run("logged out", func(t *testing.T) {
		var buf bytes.Buffer
		cli.PrintStatus(&buf, session.Initial(session.Settings{}), nil, time.Time{})
		gt.String(t, buf.String()).Contains("Status: unauthenticated")
	})

	t.Run("logged in", func(t *testing.T) {
		state := session.Initial(session.Settings{})
		state.Status = session.StatusAuthenticated
		state.User = &model.UserProfile{
			ID:   "7",
			Name: "Alice",
			Groups: []model.Group{
				{ID: "g1", Title: "Family", MemberCount: 3, Role: types.GroupRoleOwner},
			},
		}
		record := auth.NewCredentialRecord("tok", state.User)

		var buf bytes.Buffer
		cli.PrintStatus(&buf, state, record, record.IssuedAt.Add(time.Hour))
		out := buf.String()
		gt.String(t, out).Contains("Status: authenticated")
		gt.String(t, out).Contains("User: Alice (7)")
		gt.String(t, out).Contains("Token valid until:")
		gt.String(t, out).Contains("Family [g1] owner, 3 members")
	})
}
