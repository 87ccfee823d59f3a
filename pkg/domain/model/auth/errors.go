package auth

import "github.com/m-mizutani/goerr/v2"

// ErrInvalidCredentials is returned by a Verifier that rejects the login ID/password pair
var ErrInvalidCredentials = goerr.New("invalid login ID or password")
