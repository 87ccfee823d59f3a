package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const credentialsCollection = "credentials"

type credentialStore struct {
	client           *firestore.Client
	collectionPrefix string
	deviceID         string
}

var _ interfaces.CredentialStore = &credentialStore{}

func newCredentialStore(client *firestore.Client) *credentialStore {
	return &credentialStore{
		client:   client,
		deviceID: defaultDeviceID,
	}
}

func (r *credentialStore) doc() *firestore.DocumentRef {
	return r.client.Collection(collectionName(r.collectionPrefix, credentialsCollection)).Doc(r.deviceID)
}

func (r *credentialStore) Read(ctx context.Context) (*auth.CredentialRecord, error) {
	snap, err := r.doc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get credential record from firestore", goerr.V("deviceID", r.deviceID))
	}

	var record auth.CredentialRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal credential record", goerr.V("deviceID", r.deviceID))
	}

	return &record, nil
}

func (r *credentialStore) Write(ctx context.Context, record *auth.CredentialRecord) error {
	if err := record.Validate(); err != nil {
		return goerr.Wrap(err, "invalid credential record")
	}

	if _, err := r.doc().Set(ctx, record); err != nil {
		return goerr.Wrap(err, "failed to put credential record to firestore", goerr.V("deviceID", r.deviceID))
	}
	return nil
}

func (r *credentialStore) Clear(ctx context.Context) error {
	if _, err := r.doc().Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to delete credential record from firestore", goerr.V("deviceID", r.deviceID))
	}
	return nil
}
