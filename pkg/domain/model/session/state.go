// Package session holds the in-memory session state machine. State only changes
// through Reduce; each Action is its own type so the set of transitions is closed.
package session

import (
	"github.com/secmon-lab/kizuna/pkg/domain/model"
)

// Status is the phase of the session state machine
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
	StatusError           Status = "error"
)

// Settings are values injected at construction. They survive Logout.
type Settings struct {
	AppVersion string `json:"app_version,omitempty"`
	Platform   string `json:"platform,omitempty"`
}

// State is the authoritative in-memory session record
type State struct {
	Status          Status               `json:"status"`
	User            *model.UserProfile   `json:"user,omitempty"`
	SelectedGroup   *model.GroupSnapshot `json:"selected_group,omitempty"`
	Loading         bool                 `json:"loading"`
	Error           string               `json:"error,omitempty"`
	PreloadComplete bool                 `json:"preload_complete"`
	Settings        Settings             `json:"settings"`
}

// Initial returns the state at process start
func Initial(settings Settings) State {
	return State{
		Status:   StatusUnauthenticated,
		Loading:  true,
		Settings: settings,
	}
}

// IsLoggedIn reports whether the session is authenticated
func (s State) IsLoggedIn() bool {
	return s.Status == StatusAuthenticated
}

// Clone returns a copy that shares nothing mutable with s
func (s State) Clone() State {
	copied := s
	copied.User = s.User.Clone()
	if s.SelectedGroup != nil {
		g := *s.SelectedGroup
		copied.SelectedGroup = &g
	}
	return copied
}
