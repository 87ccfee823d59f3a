package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/utils/errutil"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
)

// Dispatch runs task in a new goroutine under a context detached from the
// caller's cancellation. The caller's logger is kept and tagged with the task
// name. Failures and panics are reported through errutil.Handle.
func Dispatch(ctx context.Context, task string, handler func(ctx context.Context) error) {
	logger := logging.From(ctx).With("task", task)
	bgCtx := logging.With(context.WithoutCancel(ctx), logger)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := goerr.New("panic in background task", goerr.V("task", task), goerr.V("panic", r))
				_ = errutil.Handle(bgCtx, err, "background task panicked")
			}
		}()

		logger.Debug("background task started")
		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, goerr.Wrap(err, "background task failed", goerr.V("task", task)), "background task failed")
		}
	}()
}
