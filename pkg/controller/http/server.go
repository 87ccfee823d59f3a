package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/session"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
	"github.com/secmon-lab/kizuna/pkg/usecase"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
)

// SessionUseCase is the session surface the server exposes
type SessionUseCase interface {
	State() session.State
	Flow() *usecase.FlowCoordinator
	Login(ctx context.Context, creds model.Credentials) error
	Logout(ctx context.Context) error
	RefreshAuthState(ctx context.Context) bool
	UpdateUser(ctx context.Context, patch model.UserPatch) error
	SelectGroup(ctx context.Context, groupID types.GroupID) error
	HandleHostEvent(ctx context.Context, event model.HostEvent) error
}

var _ SessionUseCase = &usecase.SessionUseCase{}

type Server struct {
	router      *chi.Mux
	session     SessionUseCase
	bridgeToken string
	gatherer    prometheus.Gatherer
}

type Options func(*Server)

// WithBridgeToken requires every /api request to carry the shared host token
func WithBridgeToken(token string) Options {
	return func(s *Server) {
		s.bridgeToken = token
	}
}

// WithMetrics serves the gatherer at /metrics
func WithMetrics(g prometheus.Gatherer) Options {
	return func(s *Server) {
		s.gatherer = g
	}
}

func New(sess SessionUseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:  r,
		session: sess,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		if s.bridgeToken != "" {
			r.Use(bridgeTokenMiddleware(s.bridgeToken))
		}

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionStateHandler(s.session))
			r.Post("/login", loginHandler(s.session))
			r.Post("/logout", logoutHandler(s.session))
			r.Post("/refresh", refreshHandler(s.session))
			r.Patch("/user", updateUserHandler(s.session))
			r.Put("/group", selectGroupHandler(s.session))
		})

		r.Post("/bridge/events", hostEventHandler(s.session))
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
