package auth

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
)

// CredentialRecord is the persisted token and user snapshot. It is the only state
// that survives a process restart; the in-memory session is rebuilt from it.
type CredentialRecord struct {
	Token    string             `json:"token" toml:"token" firestore:"token" masq:"secret"`
	IssuedAt time.Time          `json:"issued_at" toml:"issued_at" firestore:"issued_at"`
	User     *model.UserProfile `json:"user" toml:"user" firestore:"user"`
}

// NewCredentialRecord creates a record issued now
func NewCredentialRecord(token string, user *model.UserProfile) *CredentialRecord {
	return &CredentialRecord{
		Token:    token,
		IssuedAt: time.Now().UTC(),
		User:     user.Clone(),
	}
}

// Validate checks if the record can be persisted
func (x *CredentialRecord) Validate() error {
	if x == nil {
		return goerr.New("credential record is nil")
	}
	if x.Token == "" {
		return goerr.New("token is required")
	}
	if x.User == nil {
		return goerr.New("user snapshot is required")
	}
	if err := x.User.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user snapshot")
	}
	return nil
}

// Clone returns a deep copy of the record
func (x *CredentialRecord) Clone() *CredentialRecord {
	if x == nil {
		return nil
	}
	copied := *x
	copied.User = x.User.Clone()
	return &copied
}

// Renew returns a copy of the record carrying a new token issued at now
func (x *CredentialRecord) Renew(token string, now time.Time) *CredentialRecord {
	renewed := x.Clone()
	renewed.Token = token
	renewed.IssuedAt = now.UTC()
	return renewed
}

// VerifiedIdentity is the result of a successful credential verification
type VerifiedIdentity struct {
	User  *model.UserProfile
	Token string `masq:"secret"`
}
