package interfaces

import (
	"context"

	"github.com/secmon-lab/kizuna/pkg/domain/model"
)

// Navigator moves the UI to the unauthenticated entry point
type Navigator interface {
	RedirectToEntryPoint(ctx context.Context) error
}

// HostNotifier sends events to the native host. Delivery is fire-and-forget.
type HostNotifier interface {
	NotifyHost(ctx context.Context, name model.HostEventName, payload map[string]any)
}
