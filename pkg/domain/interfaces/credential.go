package interfaces

import (
	"context"

	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
)

// CredentialStore persists the credential record outside process memory.
// Read returns (nil, nil) when no record exists.
type CredentialStore interface {
	Read(ctx context.Context) (*auth.CredentialRecord, error)
	Write(ctx context.Context, record *auth.CredentialRecord) error
	Clear(ctx context.Context) error
}
