package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
)

// CredentialStore keeps the credential record in process memory. It does not
// survive a restart and is meant for development and tests.
type CredentialStore struct {
	mu     sync.RWMutex
	record *auth.CredentialRecord
}

var _ interfaces.CredentialStore = &CredentialStore{}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

func (s *CredentialStore) Read(ctx context.Context) (*auth.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a deep copy to prevent external modifications
	return s.record.Clone(), nil
}

func (s *CredentialStore) Write(ctx context.Context, record *auth.CredentialRecord) error {
	if err := record.Validate(); err != nil {
		return goerr.Wrap(err, "invalid credential record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = record.Clone()
	return nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = nil
	return nil
}
