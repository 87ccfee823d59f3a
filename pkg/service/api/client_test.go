package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
	"github.com/secmon-lab/kizuna/pkg/repository/memory"
	"github.com/secmon-lab/kizuna/pkg/service/api"
)

func newClient(t *testing.T, handler http.Handler, token string) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := memory.NewCredentialStore()
	if token != "" {
		record := auth.NewCredentialRecord(token, &model.UserProfile{ID: "7"})
		gt.NoError(t, store.Write(context.Background(), record)).Required()
	}

	client, err := api.New(srv.URL, store,
		api.WithRetryMax(2),
		api.WithRetryWait(time.Millisecond, 5*time.Millisecond),
	)
	gt.NoError(t, err).Required()
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	gt.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewValidation(t *testing.T) {
	store := memory.NewCredentialStore()

	_, err := api.New("", store)
	gt.Error(t, err)

	_, err = api.New("ftp://example.com", store)
	gt.Error(t, err)

	_, err = api.New("https://example.com", nil)
	gt.Error(t, err)

	_, err = api.New("https://example.com/v1/", store)
	gt.NoError(t, err)
}

func TestVerifyCredentials(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.Header.Get("Authorization")).Equal("")

			var req map[string]string
			gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gt.Value(t, req["id"]).Equal("alice")
			gt.Value(t, req["password"]).Equal("pw")

			writeJSON(t, w, map[string]any{
				"token": "tok-1",
				"user":  map[string]any{"id": "7", "name": "Alice"},
			})
		})

		// A stale stored token must not be sent with the login request
		client := newClient(t, mux, "old-token")
		identity, err := client.VerifyCredentials(context.Background(), "alice", "pw")
		gt.NoError(t, err).Required()
		gt.Value(t, identity.Token).Equal("tok-1")
		gt.Value(t, identity.User.ID).Equal(types.UserID("7"))
	})

	t.Run("rejected", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
		}), "")

		_, err := client.VerifyCredentials(context.Background(), "alice", "wrong")
		gt.Bool(t, errors.Is(err, api.ErrInvalidCredentials)).True()
	})

	t.Run("response without user", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"token": "tok-1"})
		}), "")

		_, err := client.VerifyCredentials(context.Background(), "alice", "pw")
		gt.Error(t, err)
	})
}

func TestRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Header.Get("Authorization")).Equal("Bearer stale")
		writeJSON(t, w, map[string]any{"token": "fresh"})
	})

	client := newClient(t, mux, "stored")
	token, err := client.RefreshToken(context.Background(), "stale")
	gt.NoError(t, err).Required()
	gt.Value(t, token).Equal("fresh")
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /groups/g1/places", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "temporary", http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, []map[string]any{{"id": "p1", "name": "Park"}})
	})

	client := newClient(t, mux, "tok")
	places, err := client.GetPlaces(context.Background(), "g1")
	gt.NoError(t, err).Required()
	gt.Array(t, places).Length(1)
	gt.Value(t, places[0].Name).Equal("Park")
	gt.Number(t, calls.Load()).Equal(int32(2))
}

func TestStatusErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/404", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("GET /users/401", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	})
	mux.HandleFunc("GET /users/400", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	})
	client := newClient(t, mux, "tok")
	ctx := context.Background()

	_, err := client.GetProfile(ctx, "404")
	gt.Bool(t, errors.Is(err, api.ErrNotFound)).True()

	_, err = client.GetProfile(ctx, "401")
	gt.Bool(t, errors.Is(err, api.ErrUnauthorized)).True()

	_, err = client.GetProfile(ctx, "400")
	gt.Bool(t, errors.Is(err, api.ErrUnexpectedStatus)).True()
}

func TestResourceEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/7", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Header.Get("Authorization")).Equal("Bearer tok")
		writeJSON(t, w, map[string]any{"id": "7", "name": "Alice"})
	})
	mux.HandleFunc("GET /users/7/groups", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{
			{"id": "g1", "title": "Home", "role": "owner", "member_count": 3},
			{"id": "g2", "title": "Club", "role": ""},
		})
	})
	mux.HandleFunc("GET /groups/g1/members", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{{"user_id": "7", "name": "Alice", "role": "owner"}})
	})
	mux.HandleFunc("GET /groups/g1/schedules", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Query().Get("period")).Equal("2024-05")
		writeJSON(t, w, []map[string]any{{"id": "s1", "title": "Trip"}})
	})
	mux.HandleFunc("GET /groups/g1/locations/aggregate", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Query().Get("date")).Equal("2024-05-03")
		writeJSON(t, w, map[string]any{"group_id": "g1", "date": "2024-05-03", "points": []any{}})
	})
	mux.HandleFunc("GET /groups/g1/locations/daily-counts", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Query().Get("month")).Equal("2024-05")
		writeJSON(t, w, []map[string]any{{"date": "2024-05-01", "count": 4}})
	})

	client := newClient(t, mux, "tok")
	ctx := context.Background()

	profile, err := client.GetProfile(ctx, "7")
	gt.NoError(t, err).Required()
	gt.Value(t, profile.Name).Equal("Alice")

	groups, err := client.GetGroups(ctx, "7")
	gt.NoError(t, err).Required()
	gt.Array(t, groups).Length(2)
	gt.Value(t, groups[0].Role).Equal(types.GroupRoleOwner)

	members, err := client.GetGroupMembers(ctx, "g1")
	gt.NoError(t, err).Required()
	gt.Array(t, members).Length(1)

	schedules, err := client.GetSchedules(ctx, "g1", "2024-05")
	gt.NoError(t, err).Required()
	gt.Array(t, schedules).Length(1)

	aggregate, err := client.GetLocationAggregate(ctx, "g1", "2024-05-03")
	gt.NoError(t, err).Required()
	gt.Value(t, aggregate.Date).Equal("2024-05-03")

	counts, err := client.GetDailyLocationCounts(ctx, "g1", "2024-05")
	gt.NoError(t, err).Required()
	gt.Number(t, counts[0].Count).Equal(4)
}

func TestUpdateProfileSendsOnlyPatchedFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /users/7", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gt.Value(t, body["name"]).Equal("Alicia")
		_, hasEmail := body["email"]
		gt.Bool(t, hasEmail).False()

		writeJSON(t, w, map[string]any{"id": "7", "name": "Alicia"})
	})

	client := newClient(t, mux, "tok")
	name := "Alicia"
	profile, err := client.UpdateProfile(context.Background(), "7", model.UserPatch{Name: &name})
	gt.NoError(t, err).Required()
	gt.Value(t, profile.Name).Equal("Alicia")
}

func TestSignOut(t *testing.T) {
	var called atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Header.Get("Authorization")).Equal("Bearer tok")
		called.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	client := newClient(t, mux, "tok")
	gt.NoError(t, client.SignOut(context.Background()))
	gt.Bool(t, called.Load()).True()
}
