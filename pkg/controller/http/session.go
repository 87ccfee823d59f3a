package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/domain/model/session"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
	"github.com/secmon-lab/kizuna/pkg/usecase"
	"github.com/secmon-lab/kizuna/pkg/utils/errutil"
)

type sessionResponse struct {
	Session session.State     `json:"session"`
	Flags   usecase.FlowFlags `json:"flags"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type refreshResponse struct {
	LoggedIn bool `json:"logged_in"`
}

type selectGroupRequest struct {
	GroupID types.GroupID `json:"group_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // header already committed
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeSession(w http.ResponseWriter, sess SessionUseCase) {
	writeJSON(w, http.StatusOK, sessionResponse{
		Session: sess.State(),
		Flags:   sess.Flow().Flags(),
	})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body")
	}
	return nil
}

func sessionStateHandler(sess SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSession(w, sess)
	}
}

func loginHandler(sess SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		err := sess.Login(r.Context(), model.Credentials{ID: req.ID, Secret: req.Password})
		if err != nil {
			// The user-facing message lives in the session state
			msg := sess.State().Error
			if msg == "" {
				msg = usecase.MessageLoginFailed
			}
			switch {
			case errors.Is(err, usecase.ErrLoginInputRequired):
				writeError(w, http.StatusBadRequest, msg)
			case errors.Is(err, usecase.ErrLoginAborted):
				writeError(w, http.StatusConflict, msg)
			case errors.Is(err, auth.ErrInvalidCredentials):
				writeError(w, http.StatusUnauthorized, msg)
			default:
				errutil.Warn(r.Context(), err, "login failed")
				writeError(w, http.StatusBadGateway, msg)
			}
			return
		}

		writeSession(w, sess)
	}
}

func logoutHandler(sess SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sess.Logout(r.Context()); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}
		writeSession(w, sess)
	}
}

func refreshHandler(sess SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, refreshResponse{LoggedIn: sess.RefreshAuthState(r.Context())})
	}
}

func updateUserHandler(sess SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch model.UserPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := sess.UpdateUser(r.Context(), patch); err != nil {
			if errors.Is(err, usecase.ErrNotLoggedIn) {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadGateway)
			return
		}
		writeSession(w, sess)
	}
}

func selectGroupHandler(sess SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectGroupRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := sess.SelectGroup(r.Context(), req.GroupID); err != nil {
			switch {
			case errors.Is(err, usecase.ErrNotLoggedIn):
				writeError(w, http.StatusUnauthorized, err.Error())
			case errors.Is(err, usecase.ErrGroupNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			default:
				errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			}
			return
		}
		writeSession(w, sess)
	}
}

func hostEventHandler(sess SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event model.HostEvent
		if err := decodeBody(r, &event); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := sess.HandleHostEvent(r.Context(), event); err != nil {
			if errors.Is(err, usecase.ErrUnknownHostEvent) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
