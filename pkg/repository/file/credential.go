package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
)

// CredentialStore persists the credential record as a TOML file readable only by
// the current user.
type CredentialStore struct {
	path string
	mu   sync.Mutex
}

var _ interfaces.CredentialStore = &CredentialStore{}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Path returns the file location
func (s *CredentialStore) Path() string {
	return s.path
}

func (s *CredentialStore) Read(ctx context.Context) (*auth.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to read credential file", goerr.V("path", s.path))
	}

	var record auth.CredentialRecord
	if err := toml.Unmarshal(data, &record); err != nil {
		return nil, goerr.Wrap(err, "failed to parse credential file", goerr.V("path", s.path))
	}
	if err := record.Validate(); err != nil {
		return nil, goerr.Wrap(err, "credential file holds an invalid record", goerr.V("path", s.path))
	}

	return &record, nil
}

func (s *CredentialStore) Write(ctx context.Context, record *auth.CredentialRecord) error {
	if err := record.Validate(); err != nil {
		return goerr.Wrap(err, "invalid credential record")
	}

	data, err := toml.Marshal(record)
	if err != nil {
		return goerr.Wrap(err, "failed to encode credential record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return goerr.Wrap(err, "failed to create credential directory", goerr.V("path", s.path))
	}

	// Write to a sibling file and rename so a crash never leaves a truncated record
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credential-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary credential file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // already renamed on success

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return goerr.Wrap(err, "failed to restrict credential file permission")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return goerr.Wrap(err, "failed to write credential file")
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close credential file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return goerr.Wrap(err, "failed to replace credential file", goerr.V("path", s.path))
	}

	return nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove credential file", goerr.V("path", s.path))
	}
	return nil
}
