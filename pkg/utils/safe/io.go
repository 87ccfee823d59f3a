package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/kizuna/pkg/utils/logging"
)

// Close safely closes an io.Closer and logs any errors.
// It handles nil closers gracefully.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Run calls fn and converts a panic into an error, so one failing step cannot take
// down the sequence that called it.
func Run(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("panic recovered", "step", name, "panic", r)
			err = &PanicError{Step: name, Value: r}
		}
	}()
	return fn(ctx)
}

// PanicError wraps a recovered panic value
type PanicError struct {
	Step  string
	Value any
}

func (e *PanicError) Error() string {
	return "panic in " + e.Step
}
