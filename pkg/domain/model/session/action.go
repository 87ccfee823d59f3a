package session

import (
	"github.com/secmon-lab/kizuna/pkg/domain/model"
)

// Action is a session transition. The unexported apply method closes the set of
// implementations to this package.
type Action interface {
	Name() string
	apply(s State) State
}

// Reduce applies a to s and returns the next state. s is not modified.
func Reduce(s State, a Action) State {
	return a.apply(s.Clone())
}

// LoginStart moves any state to Authenticating. Only Authenticated carries a user,
// so the previous user and selection are dropped.
type LoginStart struct{}

func (LoginStart) Name() string { return "LOGIN_START" }

func (LoginStart) apply(s State) State {
	s.Status = StatusAuthenticating
	s.User = nil
	s.SelectedGroup = nil
	s.PreloadComplete = false
	s.Loading = true
	s.Error = ""
	return s
}

// LoginSuccess moves Authenticating (or an already Authenticated session being
// reconciled) to Authenticated. From any other state it is ignored, so a
// verification that finishes after a logout cannot bring the session back.
type LoginSuccess struct {
	User *model.UserProfile
}

func (LoginSuccess) Name() string { return "LOGIN_SUCCESS" }

func (a LoginSuccess) apply(s State) State {
	if s.Status != StatusAuthenticating && s.Status != StatusAuthenticated {
		return s
	}
	if a.User == nil {
		return s
	}

	s.Status = StatusAuthenticated
	s.User = a.User.Clone()
	s.Loading = false
	s.Error = ""
	if s.SelectedGroup != nil {
		if _, ok := s.User.FindGroup(s.SelectedGroup.ID); !ok {
			s.SelectedGroup = nil
		}
	}
	return s
}

// LoginFailure moves Authenticating to Error
type LoginFailure struct {
	Message string
}

func (LoginFailure) Name() string { return "LOGIN_FAILURE" }

func (a LoginFailure) apply(s State) State {
	if s.Status != StatusAuthenticating {
		s.Loading = false
		return s
	}
	s.Status = StatusError
	s.User = nil
	s.SelectedGroup = nil
	s.Loading = false
	s.PreloadComplete = false
	s.Error = a.Message
	return s
}

// AbortLogin puts back the state captured before LoginStart, with loading
// cleared. It only applies while the login it aborts is still Authenticating,
// so it never overwrites a transition made by another flow in the meantime.
type AbortLogin struct {
	Previous State
}

func (AbortLogin) Name() string { return "ABORT_LOGIN" }

func (a AbortLogin) apply(s State) State {
	if s.Status != StatusAuthenticating {
		s.Loading = false
		return s
	}
	next := a.Previous.Clone()
	next.Settings = s.Settings
	next.Loading = false
	return next
}

// Logout resets to Unauthenticated, keeping only injected settings
type Logout struct{}

func (Logout) Name() string { return "LOGOUT" }

func (Logout) apply(s State) State {
	next := Initial(s.Settings)
	next.Loading = false
	return next
}

// UpdateUser shallow-merges a patch onto the authenticated user
type UpdateUser struct {
	Patch model.UserPatch
}

func (UpdateUser) Name() string { return "UPDATE_USER" }

func (a UpdateUser) apply(s State) State {
	if !s.IsLoggedIn() || s.User == nil {
		return s
	}
	s.User = a.Patch.ApplyTo(s.User)
	return s
}

// UpdateGroups replaces the group list of the authenticated user. Entries without
// a role are dropped; Dropped reports how many so the caller can log it.
type UpdateGroups struct {
	Groups []model.Group
}

func (UpdateGroups) Name() string { return "UPDATE_GROUPS" }

func (a UpdateGroups) apply(s State) State {
	if !s.IsLoggedIn() || s.User == nil {
		return s
	}
	s.User.SetGroups(a.Groups)
	if s.SelectedGroup != nil {
		if g, ok := s.User.FindGroup(s.SelectedGroup.ID); ok {
			s.SelectedGroup = g.Snapshot()
		} else {
			s.SelectedGroup = nil
		}
	}
	return s
}

// Dropped returns the entries that UpdateGroups will filter out
func (a UpdateGroups) Dropped() []model.Group {
	var dropped []model.Group
	for _, g := range a.Groups {
		if !g.HasRole() {
			dropped = append(dropped, g)
		}
	}
	return dropped
}

// SelectGroup sets the selected group. A nil Group clears the selection.
type SelectGroup struct {
	Group *model.Group
}

func (SelectGroup) Name() string { return "SELECT_GROUP" }

func (a SelectGroup) apply(s State) State {
	if !s.IsLoggedIn() {
		return s
	}
	if a.Group == nil {
		s.SelectedGroup = nil
		return s
	}
	s.SelectedGroup = a.Group.Snapshot()
	return s
}

// SetPreloadComplete sets the preload completion flag
type SetPreloadComplete struct {
	Done bool
}

func (SetPreloadComplete) Name() string { return "SET_PRELOADING_COMPLETE" }

func (a SetPreloadComplete) apply(s State) State {
	s.PreloadComplete = a.Done
	return s
}

// SetLoading sets the loading flag without touching anything else
type SetLoading struct {
	Loading bool
}

func (SetLoading) Name() string { return "SET_LOADING" }

func (a SetLoading) apply(s State) State {
	s.Loading = a.Loading
	return s
}
