package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/kizuna/pkg/repository/firestore"
)

func newFirestoreRepository(t *testing.T) *firestore.Firestore {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	// Unique device per test so parallel runs never see each other's documents
	repo, err := firestore.New(ctx, projectID, databaseID,
		firestore.WithCollectionPrefix("test"),
		firestore.WithDeviceID(uuid.NewString()),
	)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Cache().ClearAll(context.Background()))
		gt.NoError(t, repo.Credential().Clear(context.Background()))
		gt.NoError(t, repo.Close())
	})
	return repo
}
