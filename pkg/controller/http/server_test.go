package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus"
	server "github.com/secmon-lab/kizuna/pkg/controller/http"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/domain/model/session"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
	"github.com/secmon-lab/kizuna/pkg/repository/memory"
	"github.com/secmon-lab/kizuna/pkg/usecase"
)

type stubBackend struct{}

func (stubBackend) VerifyCredentials(ctx context.Context, id, secret string) (*auth.VerifiedIdentity, error) {
	if secret != "p" {
		return nil, goerr.Wrap(auth.ErrInvalidCredentials, "rejected")
	}
	return &auth.VerifiedIdentity{
		User: &model.UserProfile{
			ID:   types.UserID(id),
			Name: "Alice",
			Groups: []model.Group{
				{ID: "g1", Title: "Family", MemberCount: 3, Role: types.GroupRoleOwner},
			},
		},
		Token: "t",
	}, nil
}

func (stubBackend) RefreshToken(ctx context.Context, token string) (string, error) {
	return token, nil
}

func (stubBackend) SignOut(ctx context.Context) error { return nil }

func (stubBackend) UpdateProfile(ctx context.Context, userID types.UserID, patch model.UserPatch) (*model.UserProfile, error) {
	return nil, nil
}

func (stubBackend) GetProfile(ctx context.Context, userID types.UserID) (*model.UserProfile, error) {
	return &model.UserProfile{ID: userID, Name: "Alice"}, nil
}

func (stubBackend) GetGroups(ctx context.Context, userID types.UserID) ([]model.Group, error) {
	return []model.Group{
		{ID: "g1", Title: "Family", MemberCount: 3, Role: types.GroupRoleOwner},
	}, nil
}

func (stubBackend) GetGroupMembers(ctx context.Context, groupID types.GroupID) ([]model.Member, error) {
	return nil, nil
}

func (stubBackend) GetSchedules(ctx context.Context, groupID types.GroupID, period string) ([]model.Schedule, error) {
	return nil, nil
}

func (stubBackend) GetPlaces(ctx context.Context, groupID types.GroupID) ([]model.Place, error) {
	return nil, nil
}

func (stubBackend) GetLocationAggregate(ctx context.Context, groupID types.GroupID, date string) (*model.LocationAggregate, error) {
	return &model.LocationAggregate{GroupID: groupID, Date: date}, nil
}

func (stubBackend) GetDailyLocationCounts(ctx context.Context, groupID types.GroupID, period string) ([]model.LocationCount, error) {
	return nil, nil
}

type sessionBody struct {
	Session session.State     `json:"session"`
	Flags   usecase.FlowFlags `json:"flags"`
}

func newTestServer(t *testing.T, opts ...server.Options) (*server.Server, *usecase.SessionUseCase) {
	t.Helper()
	sess := usecase.NewSessionUseCase(stubBackend{}, memory.NewCredentialStore(), memory.NewCache())
	return server.New(sess, opts...), sess
}

func doRequest(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		gt.NoError(t, json.NewEncoder(&buf).Encode(body)).Required()
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) sessionBody {
	t.Helper()
	var body sessionBody
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&body)).Required()
	return body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(t, srv, http.MethodGet, "/health", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
}

func TestSessionState(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/session/", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)

	body := decodeSession(t, w)
	gt.Value(t, body.Session.Status).Equal(session.StatusUnauthenticated)
	gt.Bool(t, body.Flags.ErrorDialogActive).False()
}

func TestLoginAndLogout(t *testing.T) {
	srv, sess := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/session/login", map[string]string{"id": "7", "password": "p"})
	gt.Value(t, w.Code).Equal(http.StatusOK)

	body := decodeSession(t, w)
	gt.Value(t, body.Session.Status).Equal(session.StatusAuthenticated)
	gt.Value(t, body.Session.User.ID).Equal(types.UserID("7"))
	gt.Array(t, body.Session.User.Groups).Length(1)
	gt.Value(t, body.Session.SelectedGroup).Nil()

	gt.NoError(t, sess.WaitPreload(context.Background()))

	w = doRequest(t, srv, http.MethodPost, "/api/session/logout", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	body = decodeSession(t, w)
	gt.Value(t, body.Session.Status).Equal(session.StatusUnauthenticated)
	gt.Value(t, body.Session.User).Nil()
}

func TestLoginFailures(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		srv, _ := newTestServer(t)
		w := doRequest(t, srv, http.MethodPost, "/api/session/login", map[string]string{"id": "7"})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		gt.String(t, w.Body.String()).Contains(usecase.MessageLoginInputRequired)
	})

	t.Run("wrong password", func(t *testing.T) {
		srv, sess := newTestServer(t)
		w := doRequest(t, srv, http.MethodPost, "/api/session/login", map[string]string{"id": "7", "password": "x"})
		gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
		gt.String(t, w.Body.String()).Contains(usecase.MessageInvalidCredentials)
		gt.Value(t, sess.State().Status).Equal(session.StatusError)
	})

	t.Run("broken body", func(t *testing.T) {
		srv, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/session/login", strings.NewReader("{"))
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})
}

func TestRefresh(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/session/refresh", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"logged_in":false`)
}

func TestUpdateUserRequiresLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPatch, "/api/session/user", map[string]string{"name": "Bob"})
	gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
}

func TestSelectGroup(t *testing.T) {
	srv, sess := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/session/login", map[string]string{"id": "7", "password": "p"})
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.NoError(t, sess.WaitPreload(context.Background()))

	w = doRequest(t, srv, http.MethodPut, "/api/session/group", map[string]string{"group_id": "missing"})
	gt.Value(t, w.Code).Equal(http.StatusNotFound)

	w = doRequest(t, srv, http.MethodPut, "/api/session/group", map[string]string{"group_id": ""})
	gt.Value(t, w.Code).Equal(http.StatusOK)
	body := decodeSession(t, w)
	gt.Value(t, body.Session.SelectedGroup).Nil()

	w = doRequest(t, srv, http.MethodPut, "/api/session/group", map[string]string{"group_id": "g1"})
	gt.Value(t, w.Code).Equal(http.StatusOK)
	body = decodeSession(t, w)
	gt.Value(t, body.Session.SelectedGroup.ID).Equal(types.GroupID("g1"))
}

func TestHostEvents(t *testing.T) {
	srv, sess := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/bridge/events", model.HostEvent{Name: model.HostEventErrorDialogShown})
	gt.Value(t, w.Code).Equal(http.StatusNoContent)
	gt.Bool(t, sess.Flow().Flags().ErrorDialogActive).True()

	w = doRequest(t, srv, http.MethodPost, "/api/bridge/events", model.HostEvent{Name: model.HostEventErrorDialogDismissed})
	gt.Value(t, w.Code).Equal(http.StatusNoContent)
	gt.Bool(t, sess.Flow().Suppressed()).False()

	w = doRequest(t, srv, http.MethodPost, "/api/bridge/events", model.HostEvent{Name: model.HostEventRedirectsBlocked})
	gt.Value(t, w.Code).Equal(http.StatusNoContent)
	gt.Bool(t, sess.Flow().Flags().RedirectsBlocked).True()

	w = doRequest(t, srv, http.MethodPost, "/api/bridge/events", model.HostEvent{Name: model.HostEventRedirectsUnblocked})
	gt.Value(t, w.Code).Equal(http.StatusNoContent)
	gt.Bool(t, sess.Flow().Suppressed()).False()

	w = doRequest(t, srv, http.MethodPost, "/api/bridge/events", model.HostEvent{Name: "unknown"})
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
}

func TestBridgeToken(t *testing.T) {
	srv, _ := newTestServer(t, server.WithBridgeToken("s3cret"))

	w := doRequest(t, srv, http.MethodGet, "/api/session/", nil)
	gt.Value(t, w.Code).Equal(http.StatusUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/api/session/", nil)
	req.Header.Set("X-Kizuna-Bridge-Token", "wrong")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Value(t, w.Code).Equal(http.StatusUnauthorized)

	req = httptest.NewRequest(http.MethodGet, "/api/session/", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Value(t, w.Code).Equal(http.StatusOK)

	// Health stays open for the host's liveness probe
	w = doRequest(t, srv, http.MethodGet, "/health", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := usecase.NewPreloadMetrics(reg)
	gt.NoError(t, err).Required()
	metrics.WatchdogFired().Inc()

	srv, _ := newTestServer(t, server.WithMetrics(reg))
	w := doRequest(t, srv, http.MethodGet, "/metrics", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains("kizuna_preload_watchdog_fired_total")

	srv, _ = newTestServer(t)
	w = doRequest(t, srv, http.MethodGet, "/metrics", nil)
	gt.Value(t, w.Code).Equal(http.StatusNotFound)
}
