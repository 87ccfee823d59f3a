package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// UserID represents a unique identifier for a user
type UserID string

// Validate checks if the UserID is valid
func (x UserID) Validate() error {
	if x == "" {
		return goerr.New("user ID cannot be empty")
	}
	if !idPattern.MatchString(string(x)) {
		return goerr.New("user ID must be alphanumeric with hyphens or underscores", goerr.V("id", x))
	}
	return nil
}

// String returns the string representation of UserID
func (x UserID) String() string {
	return string(x)
}

// GroupID represents a unique identifier for a group
type GroupID string

// Validate checks if the GroupID is valid
func (x GroupID) Validate() error {
	if x == "" {
		return goerr.New("group ID cannot be empty")
	}
	if !idPattern.MatchString(string(x)) {
		return goerr.New("group ID must be alphanumeric with hyphens or underscores", goerr.V("id", x))
	}
	return nil
}

// String returns the string representation of GroupID
func (x GroupID) String() string {
	return string(x)
}
