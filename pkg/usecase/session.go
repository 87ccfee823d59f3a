package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/domain/model/session"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
	"github.com/secmon-lab/kizuna/pkg/utils/async"
	"github.com/secmon-lab/kizuna/pkg/utils/errutil"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
	"github.com/secmon-lab/kizuna/pkg/utils/safe"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// SessionUseCase is the public surface of the session lifecycle. It owns the
// session state and composes the token guard, the preloader and the stores.
type SessionUseCase struct {
	backend     interfaces.Backend
	credentials interfaces.CredentialStore
	cache       interfaces.Cache
	navigator   interfaces.Navigator
	notifier    interfaces.HostNotifier
	flow        *FlowCoordinator
	guard       *TokenGuard
	preloader   *Preloader
	store       *sessionStore

	settings    session.Settings
	guardOpts   []TokenGuardOption
	preloadOpts []PreloaderOption

	// credMu serializes writes of the credential record against logout, so a
	// refresh finishing late cannot restore a record that logout cleared.
	credMu  sync.Mutex
	refresh singleflight.Group
}

type SessionOption func(*SessionUseCase)

func WithNavigator(n interfaces.Navigator) SessionOption {
	return func(uc *SessionUseCase) {
		uc.navigator = n
	}
}

func WithHostNotifier(n interfaces.HostNotifier) SessionOption {
	return func(uc *SessionUseCase) {
		uc.notifier = n
	}
}

func WithFlowCoordinator(f *FlowCoordinator) SessionOption {
	return func(uc *SessionUseCase) {
		uc.flow = f
	}
}

func WithSettings(s session.Settings) SessionOption {
	return func(uc *SessionUseCase) {
		uc.settings = s
	}
}

func WithTokenGuardOptions(opts ...TokenGuardOption) SessionOption {
	return func(uc *SessionUseCase) {
		uc.guardOpts = append(uc.guardOpts, opts...)
	}
}

func WithPreloaderOptions(opts ...PreloaderOption) SessionOption {
	return func(uc *SessionUseCase) {
		uc.preloadOpts = append(uc.preloadOpts, opts...)
	}
}

func NewSessionUseCase(backend interfaces.Backend, credentials interfaces.CredentialStore, cache interfaces.Cache, opts ...SessionOption) *SessionUseCase {
	uc := &SessionUseCase{
		backend:     backend,
		credentials: credentials,
		cache:       cache,
		navigator:   nopNavigator{},
		notifier:    nopNotifier{},
		flow:        NewFlowCoordinator(),
	}
	for _, opt := range opts {
		opt(uc)
	}

	uc.guard = NewTokenGuard(credentials, backend, uc.guardOpts...)
	uc.preloader = NewPreloader(backend, cache, append(uc.preloadOpts, WithPreloadCompleted(uc.onPreloadComplete))...)
	uc.store = newSessionStore(uc.settings)
	return uc
}

// State returns a copy of the current session state
func (uc *SessionUseCase) State() session.State {
	return uc.store.get()
}

// Subscribe registers fn to receive every new state. fn runs synchronously on
// the dispatching goroutine and must not call back into the use case.
func (uc *SessionUseCase) Subscribe(fn func(session.State)) (unsubscribe func()) {
	return uc.store.subscribe(fn)
}

func (uc *SessionUseCase) Flow() *FlowCoordinator {
	return uc.flow
}

func (uc *SessionUseCase) TokenGuard() *TokenGuard {
	return uc.guard
}

func (uc *SessionUseCase) Preloader() *Preloader {
	return uc.preloader
}

// Initialize restores the session from the stored credential at process start
func (uc *SessionUseCase) Initialize(ctx context.Context) bool {
	ok := uc.RefreshAuthState(ctx)
	logging.From(ctx).Info("session initialized", "logged_in", ok)
	return ok
}

// Login verifies credentials, stores the credential record and starts a
// background preload. The caller is unblocked before the preload finishes.
func (uc *SessionUseCase) Login(ctx context.Context, creds model.Credentials) error {
	previous := uc.store.get()
	uc.store.dispatch(ctx, session.LoginStart{})

	if err := creds.Validate(); err != nil {
		uc.failLogin(ctx, previous, MessageLoginInputRequired)
		return goerr.Wrap(ErrLoginInputRequired, err.Error())
	}

	identity, err := uc.backend.VerifyCredentials(ctx, creds.ID, creds.Secret)
	if err != nil {
		msg := MessageLoginFailed
		if errors.Is(err, auth.ErrInvalidCredentials) {
			msg = MessageInvalidCredentials
		}
		uc.failLogin(ctx, previous, msg)
		return goerr.Wrap(err, "login failed", goerr.V("id", creds.ID))
	}
	if identity == nil || identity.Token == "" {
		uc.failLogin(ctx, previous, MessageLoginFailed)
		return goerr.Wrap(ErrInvalidIdentity, "verifier returned no token", goerr.V("id", creds.ID))
	}
	if err := identity.User.Validate(); err != nil {
		uc.failLogin(ctx, previous, MessageLoginFailed)
		return goerr.Wrap(ErrInvalidIdentity, err.Error(), goerr.V("id", creds.ID))
	}

	uc.credMu.Lock()
	state := uc.store.dispatch(ctx, session.LoginSuccess{User: identity.User})
	if !state.IsLoggedIn() {
		uc.credMu.Unlock()
		return goerr.Wrap(ErrLoginAborted, "session reset during login", goerr.V("id", creds.ID))
	}
	if len(identity.User.Groups) > 0 {
		state = uc.applyGroups(ctx, identity.User.Groups)
	}
	writeErr := uc.credentials.Write(ctx, auth.NewCredentialRecord(identity.Token, state.User))
	uc.credMu.Unlock()

	if writeErr != nil {
		// The in-memory session stays valid; only the next restart loses it
		_ = errutil.Handle(ctx, writeErr, "failed to persist credential record")
	}

	uc.store.dispatch(ctx, session.SetLoading{Loading: false})
	uc.schedulePreload(ctx, state.User.ID, "login")
	uc.notifier.NotifyHost(ctx, model.HostEventLogin, map[string]any{"user_id": state.User.ID.String()})

	logging.From(ctx).Info("user logged in", "user_id", state.User.ID)
	return nil
}

// failLogin reports a failed login. While a suppression flag is set the failure
// is absorbed: the state before the attempt comes back with loading cleared.
func (uc *SessionUseCase) failLogin(ctx context.Context, previous session.State, msg string) {
	if uc.flow.Suppressed() {
		logging.From(ctx).Info("login failure absorbed by suppression flags", "flags", uc.flow.Flags())
		uc.store.dispatch(ctx, session.AbortLogin{Previous: previous})
		return
	}
	uc.store.dispatch(ctx, session.LoginFailure{Message: msg})
}

type logoutStep struct {
	name string
	fn   func(ctx context.Context) error
}

// Logout clears every trace of the session and moves the UI to the entry point.
// Each step is isolated so a failing step never stops the rest. When a
// suppression flag is set it does nothing. It always returns nil.
func (uc *SessionUseCase) Logout(ctx context.Context) error {
	logger := logging.From(ctx)
	if uc.flow.Suppressed() {
		logger.Info("logout suppressed", "flags", uc.flow.Flags())
		return nil
	}

	local := []logoutStep{
		{"reset preload", func(ctx context.Context) error {
			uc.preloader.Reset()
			return nil
		}},
		{"remote sign-out", uc.signOut},
		{"clear credential", uc.credentials.Clear},
		{"clear cache", uc.cache.ClearAll},
		{"reset session", func(ctx context.Context) error {
			uc.store.dispatch(ctx, session.Logout{})
			return nil
		}},
	}
	outward := []logoutStep{
		{"redirect", uc.navigator.RedirectToEntryPoint},
		{"notify host", func(ctx context.Context) error {
			uc.notifier.NotifyHost(ctx, model.HostEventLogout, nil)
			return nil
		}},
	}

	uc.credMu.Lock()
	uc.runSteps(ctx, local)
	uc.credMu.Unlock()
	uc.runSteps(ctx, outward)

	logger.Info("user logged out")
	return nil
}

func (uc *SessionUseCase) runSteps(ctx context.Context, steps []logoutStep) {
	for _, step := range steps {
		if err := safe.Run(ctx, step.name, step.fn); err != nil {
			errutil.Warn(ctx, err, "logout step failed: "+step.name)
		}
	}
}

func (uc *SessionUseCase) signOut(ctx context.Context) error {
	record, err := uc.credentials.Read(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to read credential record before sign-out")
	}
	if record == nil {
		return nil
	}
	return uc.backend.SignOut(ctx)
}

// RefreshAuthState re-validates the stored credential and rebuilds the session
// from it. It is safe to call redundantly; concurrent calls share one run.
func (uc *SessionUseCase) RefreshAuthState(ctx context.Context) bool {
	v, _, _ := uc.refresh.Do("refresh", func() (any, error) {
		ok := false
		err := safe.Run(ctx, "refresh auth state", func(ctx context.Context) error {
			ok = uc.refreshAuthState(ctx)
			return nil
		})
		if err != nil {
			errutil.Warn(ctx, err, "refresh auth state aborted")
		}
		return ok, nil
	})
	return v.(bool)
}

func (uc *SessionUseCase) refreshAuthState(ctx context.Context) bool {
	if !uc.guard.ValidateAndRefresh(ctx) {
		uc.resetLocal(ctx)
		return false
	}

	record, err := uc.credentials.Read(ctx)
	if err != nil {
		errutil.Warn(ctx, err, "failed to read credential record")
		uc.resetLocal(ctx)
		return false
	}
	if record == nil {
		uc.resetLocal(ctx)
		return false
	}

	user, groups := uc.fetchCurrentUser(ctx, record.User)

	uc.credMu.Lock()
	current, err := uc.credentials.Read(ctx)
	if err != nil || current == nil {
		// Logged out while fetching
		uc.credMu.Unlock()
		return false
	}

	switch uc.store.get().Status {
	case session.StatusUnauthenticated, session.StatusError:
		uc.store.dispatch(ctx, session.LoginStart{})
	}
	state := uc.store.dispatch(ctx, session.LoginSuccess{User: user})
	if !state.IsLoggedIn() {
		uc.credMu.Unlock()
		return false
	}
	state = uc.applyGroups(ctx, groups)

	renewed := current.Clone()
	renewed.User = state.User
	if err := uc.credentials.Write(ctx, renewed); err != nil {
		errutil.Warn(ctx, err, "failed to update credential snapshot")
	}
	uc.credMu.Unlock()

	uc.schedulePreload(ctx, state.User.ID, "refresh")
	return true
}

// resetLocal drops an in-memory session that can no longer be backed by a
// credential. It does not navigate; a login in progress is left alone.
func (uc *SessionUseCase) resetLocal(ctx context.Context) {
	switch uc.store.get().Status {
	case session.StatusAuthenticated:
		logging.From(ctx).Info("stored credential is no longer valid, session reset")
		uc.preloader.Reset()
		uc.store.dispatch(ctx, session.Logout{})
	case session.StatusAuthenticating:
	default:
		uc.store.dispatch(ctx, session.SetLoading{Loading: false})
	}
}

// fetchCurrentUser fetches profile and groups, falling back to the stored
// snapshot for whichever fetch fails.
func (uc *SessionUseCase) fetchCurrentUser(ctx context.Context, snapshot *model.UserProfile) (*model.UserProfile, []model.Group) {
	var (
		profile *model.UserProfile
		groups  []model.Group
		fetched bool
	)

	var eg errgroup.Group
	eg.Go(func() error {
		p, err := uc.backend.GetProfile(ctx, snapshot.ID)
		if err != nil {
			errutil.Warn(ctx, err, "failed to fetch profile, using stored snapshot")
			return nil
		}
		profile = p
		return nil
	})
	eg.Go(func() error {
		g, err := uc.backend.GetGroups(ctx, snapshot.ID)
		if err != nil {
			errutil.Warn(ctx, err, "failed to fetch groups, using stored snapshot")
			return nil
		}
		groups, fetched = g, true
		return nil
	})
	_ = eg.Wait()

	user := snapshot.Clone()
	if profile != nil {
		if profile.ID == snapshot.ID {
			merged := profile.Clone()
			merged.Groups = user.Groups
			user = merged
		} else {
			logging.From(ctx).Warn("fetched profile does not match stored user",
				"stored", snapshot.ID,
				"fetched", profile.ID,
			)
		}
	}
	if !fetched {
		groups = user.Groups
	}
	return user, groups
}

func (uc *SessionUseCase) applyGroups(ctx context.Context, groups []model.Group) session.State {
	action := session.UpdateGroups{Groups: groups}
	if dropped := action.Dropped(); len(dropped) > 0 {
		ids := make([]types.GroupID, 0, len(dropped))
		for _, g := range dropped {
			ids = append(ids, g.ID)
		}
		logging.From(ctx).Warn("groups without role are ignored", "count", len(dropped), "group_ids", ids)
	}
	return uc.store.dispatch(ctx, action)
}

func (uc *SessionUseCase) schedulePreload(ctx context.Context, userID types.UserID, source string) {
	async.Dispatch(ctx, "preload "+source, func(ctx context.Context) error {
		uc.preloader.Preload(ctx, userID, source)
		return nil
	})
}

func (uc *SessionUseCase) onPreloadComplete(ctx context.Context, userID types.UserID) {
	state := uc.store.get()
	if !state.IsLoggedIn() || state.User == nil || state.User.ID != userID {
		return
	}
	uc.store.dispatch(ctx, session.SetPreloadComplete{Done: true})
}

// WaitPreload blocks until the current session reports a finished preload
func (uc *SessionUseCase) WaitPreload(ctx context.Context) error {
	done := make(chan struct{}, 1)
	unsubscribe := uc.Subscribe(func(s session.State) {
		if s.PreloadComplete {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if uc.State().PreloadComplete {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "preload did not complete")
	}
}

// UpdateUser merges patch into the session user, persists it remotely and
// rewrites the stored snapshot.
func (uc *SessionUseCase) UpdateUser(ctx context.Context, patch model.UserPatch) error {
	state := uc.store.get()
	if !state.IsLoggedIn() || state.User == nil {
		return goerr.Wrap(ErrNotLoggedIn, "cannot update user")
	}
	if patch.IsEmpty() {
		return nil
	}

	state = uc.store.dispatch(ctx, session.UpdateUser{Patch: patch})
	userID := state.User.ID

	if _, err := uc.backend.UpdateProfile(ctx, userID, patch); err != nil {
		return goerr.Wrap(err, "failed to update profile", goerr.V("user_id", userID))
	}

	uc.persistSnapshot(ctx)
	return nil
}

// SelectGroup selects one of the user's groups. An empty ID clears the selection.
func (uc *SessionUseCase) SelectGroup(ctx context.Context, groupID types.GroupID) error {
	state := uc.store.get()
	if !state.IsLoggedIn() || state.User == nil {
		return goerr.Wrap(ErrNotLoggedIn, "cannot select group")
	}

	if groupID == "" {
		uc.store.dispatch(ctx, session.SelectGroup{})
		return nil
	}

	group, ok := state.User.FindGroup(groupID)
	if !ok {
		return goerr.Wrap(ErrGroupNotFound, "cannot select group", goerr.V("group_id", groupID))
	}
	uc.store.dispatch(ctx, session.SelectGroup{Group: &group})
	return nil
}

func (uc *SessionUseCase) persistSnapshot(ctx context.Context) {
	uc.credMu.Lock()
	defer uc.credMu.Unlock()

	state := uc.store.get()
	if !state.IsLoggedIn() || state.User == nil {
		return
	}
	record, err := uc.credentials.Read(ctx)
	if err != nil {
		errutil.Warn(ctx, err, "failed to read credential record")
		return
	}
	if record == nil {
		return
	}
	record.User = state.User
	if err := uc.credentials.Write(ctx, record); err != nil {
		errutil.Warn(ctx, err, "failed to update credential snapshot")
	}
}

// HandleHostEvent applies an event sent by the native host
func (uc *SessionUseCase) HandleHostEvent(ctx context.Context, event model.HostEvent) error {
	logging.From(ctx).Debug("host event received", "event", event.Name, "id", event.ID)

	switch event.Name {
	case model.HostEventForeground:
		uc.RefreshAuthState(ctx)
	case model.HostEventLoginCompleted:
		uc.flow.SetProviderLoginInProgress(false)
		uc.RefreshAuthState(ctx)
	case model.HostEventErrorDialogShown:
		uc.flow.SetErrorDialogActive(true)
	case model.HostEventErrorDialogDismissed:
		uc.flow.SetErrorDialogActive(false)
	case model.HostEventProviderLoginStarted:
		uc.flow.SetProviderLoginInProgress(true)
	case model.HostEventProviderLoginFinished:
		uc.flow.SetProviderLoginInProgress(false)
	case model.HostEventRedirectsBlocked:
		uc.flow.SetRedirectsBlocked(true)
	case model.HostEventRedirectsUnblocked:
		uc.flow.SetRedirectsBlocked(false)
	case model.HostEventLogout:
		return uc.Logout(ctx)
	default:
		return goerr.Wrap(ErrUnknownHostEvent, "unsupported host event", goerr.V("event", event.Name))
	}
	return nil
}

type nopNavigator struct{}

func (nopNavigator) RedirectToEntryPoint(ctx context.Context) error { return nil }

type nopNotifier struct{}

func (nopNotifier) NotifyHost(ctx context.Context, name model.HostEventName, payload map[string]any) {}
