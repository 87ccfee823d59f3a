package model

// HostEventName is the name of an event exchanged with the native host
type HostEventName string

const (
	// Outgoing events
	HostEventLogin    HostEventName = "login"
	HostEventLogout   HostEventName = "logout"
	HostEventNavigate HostEventName = "navigate"

	// Incoming events
	HostEventForeground            HostEventName = "foreground"
	HostEventLoginCompleted        HostEventName = "login-completed"
	HostEventErrorDialogShown      HostEventName = "error-dialog-shown"
	HostEventErrorDialogDismissed  HostEventName = "error-dialog-dismissed"
	HostEventProviderLoginStarted  HostEventName = "provider-login-started"
	HostEventProviderLoginFinished HostEventName = "provider-login-finished"
	HostEventRedirectsBlocked      HostEventName = "redirects-blocked"
	HostEventRedirectsUnblocked    HostEventName = "redirects-unblocked"
)

// HostEvent is a message exchanged with the native host
type HostEvent struct {
	ID      string         `json:"id,omitempty"`
	Name    HostEventName  `json:"name"`
	Payload map[string]any `json:"payload,omitempty"`
}
