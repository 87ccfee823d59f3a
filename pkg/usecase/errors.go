package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Input errors
	ErrLoginInputRequired = errors.New("login ID and password are required")
	ErrUnknownHostEvent   = errors.New("unknown host event")
	ErrInvalidIdentity    = errors.New("verifier returned an invalid identity")

	// State errors
	ErrNotLoggedIn   = errors.New("not logged in")
	ErrLoginAborted  = errors.New("login was superseded by a logout")
	ErrGroupNotFound = errors.New("group not found")
)

// User-facing login failure messages
const (
	MessageLoginInputRequired = "Please enter your login ID and password."
	MessageInvalidCredentials = "The login ID or password is incorrect."
	MessageLoginFailed        = "Login failed. Please check your connection and try again."
)
