package usecase

import (
	"context"
	"sync"

	"github.com/secmon-lab/kizuna/pkg/domain/model/session"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
)

// sessionStore owns the session state. Every change goes through dispatch.
type sessionStore struct {
	mu          sync.Mutex
	state       session.State
	subscribers map[int]func(session.State)
	nextID      int
}

func newSessionStore(settings session.Settings) *sessionStore {
	return &sessionStore{
		state:       session.Initial(settings),
		subscribers: make(map[int]func(session.State)),
	}
}

func (s *sessionStore) get() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// dispatch applies a and notifies subscribers with the resulting state
func (s *sessionStore) dispatch(ctx context.Context, a session.Action) session.State {
	s.mu.Lock()
	next := session.Reduce(s.state, a)
	s.state = next
	subs := make([]func(session.State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	logging.From(ctx).Debug("session action dispatched",
		"action", a.Name(),
		"status", next.Status,
		"loading", next.Loading,
		"preload_complete", next.PreloadComplete,
	)

	for _, fn := range subs {
		fn(next.Clone())
	}
	return next.Clone()
}

func (s *sessionStore) subscribe(fn func(session.State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}
