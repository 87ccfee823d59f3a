package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
)

// ErrNotFound is returned when a requested document does not exist
var ErrNotFound = goerr.New("not found")

const defaultDeviceID = "default"

// Firestore holds the credential store and cache layer backed by Cloud Firestore
type Firestore struct {
	client     *firestore.Client
	credential *credentialStore
	cache      *cache
}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every collection name, e.g. for test isolation
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.credential.collectionPrefix = prefix
		f.cache.collectionPrefix = prefix
	}
}

// WithDeviceID scopes the credential record and cache entries to one device
func WithDeviceID(deviceID string) Option {
	return func(f *Firestore) {
		if deviceID == "" {
			return
		}
		f.credential.deviceID = deviceID
		f.cache.deviceID = deviceID
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID),
		)
	}

	f := &Firestore{
		client:     client,
		credential: newCredentialStore(client),
		cache:      newCache(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Credential() *credentialStore {
	return f.credential
}

func (f *Firestore) Cache() *cache {
	return f.cache
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func collectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}
