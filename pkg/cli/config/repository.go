package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/repository/file"
	"github.com/secmon-lab/kizuna/pkg/repository/firestore"
	"github.com/secmon-lab/kizuna/pkg/repository/memory"
	"github.com/secmon-lab/kizuna/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendFirestore = "firestore"
)

// Repository holds CLI flags for the credential store and cache backends
type Repository struct {
	credentialBackend string
	credentialFile    string
	cacheBackend      string
	projectID         string
	databaseID        string
	collectionPrefix  string
	deviceID          string
}

// Stores is the configured credential store and cache
type Stores struct {
	Credentials interfaces.CredentialStore
	Cache       interfaces.Cache

	fs *firestore.Firestore
}

// Close releases the Firestore client if one was opened
func (s *Stores) Close() error {
	if s.fs == nil {
		return nil
	}
	return s.fs.Close()
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "credential-backend",
			Usage:       "Credential store backend (file, firestore or memory)",
			Value:       BackendFile,
			Category:    "Repository",
			Sources:     cli.EnvVars("KIZUNA_CREDENTIAL_BACKEND"),
			Destination: &r.credentialBackend,
		},
		&cli.StringFlag{
			Name:        "credential-file",
			Usage:       "Credential file path (default: <user config dir>/kizuna/credential.toml)",
			Category:    "Repository",
			Sources:     cli.EnvVars("KIZUNA_CREDENTIAL_FILE"),
			Destination: &r.credentialFile,
		},
		&cli.StringFlag{
			Name:        "cache-backend",
			Usage:       "Resource cache backend (memory or firestore)",
			Value:       BackendMemory,
			Category:    "Repository",
			Sources:     cli.EnvVars("KIZUNA_CACHE_BACKEND"),
			Destination: &r.cacheBackend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when a firestore backend is used)",
			Category:    "Repository",
			Sources:     cli.EnvVars("KIZUNA_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("KIZUNA_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix of the Firestore collections",
			Value:       "kizuna",
			Category:    "Repository",
			Sources:     cli.EnvVars("KIZUNA_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "device-id",
			Usage:       "Device ID keying the Firestore documents",
			Category:    "Repository",
			Sources:     cli.EnvVars("KIZUNA_DEVICE_ID"),
			Destination: &r.deviceID,
		},
	}
}

// CredentialFile returns the credential file path, falling back to the user config dir
func (r *Repository) CredentialFile() (string, error) {
	if r.credentialFile != "" {
		return r.credentialFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve user config dir")
	}
	return filepath.Join(dir, "kizuna", "credential.toml"), nil
}

// Configure initializes the credential store and the cache. The caller is
// responsible for calling Close() on the returned stores.
func (r *Repository) Configure(ctx context.Context) (*Stores, error) {
	stores := &Stores{}

	openFirestore := func() (*firestore.Firestore, error) {
		if stores.fs != nil {
			return stores.fs, nil
		}
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "firestore-project-id is required when using firestore backend",
				goerr.V(FlagKey, "firestore-project-id"))
		}

		var opts []firestore.Option
		if r.collectionPrefix != "" {
			opts = append(opts, firestore.WithCollectionPrefix(r.collectionPrefix))
		}
		if r.deviceID != "" {
			opts = append(opts, firestore.WithDeviceID(r.deviceID))
		}

		fs, err := firestore.New(ctx, r.projectID, r.databaseID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		stores.fs = fs
		return fs, nil
	}

	switch r.credentialBackend {
	case BackendFile:
		path, err := r.CredentialFile()
		if err != nil {
			return nil, err
		}
		stores.Credentials = file.NewCredentialStore(path)
		logging.Default().Info("Using file credential store", "path", path)

	case BackendFirestore:
		fs, err := openFirestore()
		if err != nil {
			return nil, err
		}
		stores.Credentials = fs.Credential()

	case BackendMemory:
		logging.Default().Info("Using in-memory credential store (development mode)")
		stores.Credentials = memory.NewCredentialStore()

	default:
		return nil, goerr.Wrap(ErrUnknownBackend, "invalid credential backend", goerr.V(BackendKey, r.credentialBackend))
	}

	switch r.cacheBackend {
	case BackendMemory:
		stores.Cache = memory.NewCache()

	case BackendFirestore:
		fs, err := openFirestore()
		if err != nil {
			_ = stores.Close()
			return nil, err
		}
		stores.Cache = fs.Cache()

	default:
		_ = stores.Close()
		return nil, goerr.Wrap(ErrUnknownBackend, "invalid cache backend", goerr.V(BackendKey, r.cacheBackend))
	}

	return stores, nil
}
