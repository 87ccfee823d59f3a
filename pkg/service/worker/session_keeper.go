package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/kizuna/pkg/domain/model/session"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
)

// SessionRefresher is the part of the session use case the keeper drives
type SessionRefresher interface {
	RefreshAuthState(ctx context.Context) bool
	State() session.State
}

// SessionKeeperWorker periodically re-validates the logged-in session so a token
// nearing expiry is refreshed before the next foreground request needs it.
//
// Architecture assumptions:
// - One keeper per process; RefreshAuthState collapses concurrent calls anyway
type SessionKeeperWorker struct {
	session  SessionRefresher
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewSessionKeeperWorker(sess SessionRefresher, interval time.Duration) *SessionKeeperWorker {
	return &SessionKeeperWorker{
		session:  sess,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. It does not block.
func (w *SessionKeeperWorker) Start(ctx context.Context) error {
	logging.From(ctx).Info("session keeper starting", "interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *SessionKeeperWorker) Stop() {
	logging.Default().Info("session keeper stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("session keeper stopped")
}

func (w *SessionKeeperWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.From(ctx).Info("session keeper context cancelled")
			return
		}
	}
}

func (w *SessionKeeperWorker) tick(ctx context.Context) {
	if !w.session.State().IsLoggedIn() {
		return
	}

	started := time.Now()
	ok := w.session.RefreshAuthState(ctx)
	logging.From(ctx).Debug("session keeper tick",
		"logged_in", ok,
		"duration", time.Since(started).String(),
	)
	if !ok {
		logging.From(ctx).Warn("stored credential could not be refreshed, session dropped")
	}
}
