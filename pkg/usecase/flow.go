package usecase

import "sync/atomic"

// FlowCoordinator holds the suppression flags shared by competing flows. While
// any flag is set, login failures are absorbed and logout does nothing, so two
// flows never fight over the same redirect.
type FlowCoordinator struct {
	errorDialogActive       atomic.Bool
	providerLoginInProgress atomic.Bool
	redirectsBlocked        atomic.Bool
}

// FlowFlags is a snapshot of the suppression flags
type FlowFlags struct {
	ErrorDialogActive       bool `json:"error_dialog_active"`
	ProviderLoginInProgress bool `json:"provider_login_in_progress"`
	RedirectsBlocked        bool `json:"redirects_blocked"`
}

func NewFlowCoordinator() *FlowCoordinator {
	return &FlowCoordinator{}
}

func (f *FlowCoordinator) SetErrorDialogActive(v bool) {
	f.errorDialogActive.Store(v)
}

func (f *FlowCoordinator) SetProviderLoginInProgress(v bool) {
	f.providerLoginInProgress.Store(v)
}

func (f *FlowCoordinator) SetRedirectsBlocked(v bool) {
	f.redirectsBlocked.Store(v)
}

// Suppressed reports whether any flag is set
func (f *FlowCoordinator) Suppressed() bool {
	return f.errorDialogActive.Load() ||
		f.providerLoginInProgress.Load() ||
		f.redirectsBlocked.Load()
}

func (f *FlowCoordinator) Flags() FlowFlags {
	return FlowFlags{
		ErrorDialogActive:       f.errorDialogActive.Load(),
		ProviderLoginInProgress: f.providerLoginInProgress.Load(),
		RedirectsBlocked:        f.redirectsBlocked.Load(),
	}
}
