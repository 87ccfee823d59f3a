package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
	"github.com/secmon-lab/kizuna/pkg/repository/file"
	"github.com/secmon-lab/kizuna/pkg/repository/memory"
)

func newTestRecord() *auth.CredentialRecord {
	user := &model.UserProfile{ID: "7", Name: "Alice", Email: "alice@example.com"}
	user.SetGroups([]model.Group{
		{ID: "g1", Title: "Home", MemberCount: 3, Role: types.GroupRoleOwner},
		{ID: "g2", Title: "Club", MemberCount: 12, Role: types.GroupRoleMember},
	})
	return auth.NewCredentialRecord("token-abc", user)
}

func runCredentialStoreTest(t *testing.T, newStore func(t *testing.T) interfaces.CredentialStore) {
	t.Run("read without record returns nil", func(t *testing.T) {
		store := newStore(t)
		record, err := store.Read(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, record).Nil()
	})

	t.Run("write then read", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		record := newTestRecord()

		gt.NoError(t, store.Write(ctx, record)).Required()

		got, err := store.Read(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil().Required()
		gt.Value(t, got.Token).Equal("token-abc")
		gt.Value(t, got.User.ID).Equal(types.UserID("7"))
		gt.Value(t, got.User.Name).Equal("Alice")
		gt.Array(t, got.User.Groups).Length(2)
		gt.Array(t, got.User.OwnedGroups).Length(1)
		gt.Array(t, got.User.JoinedGroups).Length(1)
		gt.Value(t, got.User.OwnedGroups[0].ID).Equal(types.GroupID("g1"))

		// Compare timestamps with tolerance for storage precision
		diff := got.IssuedAt.Sub(record.IssuedAt)
		gt.Bool(t, diff < time.Second && diff > -time.Second).True()
	})

	t.Run("write replaces existing record", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		record := newTestRecord()

		gt.NoError(t, store.Write(ctx, record)).Required()
		gt.NoError(t, store.Write(ctx, record.Renew("token-new", time.Now()))).Required()

		got, err := store.Read(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Token).Equal("token-new")
	})

	t.Run("clear removes record and is idempotent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		gt.NoError(t, store.Write(ctx, newTestRecord())).Required()
		gt.NoError(t, store.Clear(ctx)).Required()
		gt.NoError(t, store.Clear(ctx)).Required()

		got, err := store.Read(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})

	t.Run("invalid record is rejected", func(t *testing.T) {
		store := newStore(t)
		gt.Error(t, store.Write(context.Background(), &auth.CredentialRecord{Token: "x"}))
		gt.Error(t, store.Write(context.Background(), nil))
	})
}

func TestMemoryCredentialStore(t *testing.T) {
	runCredentialStoreTest(t, func(t *testing.T) interfaces.CredentialStore {
		return memory.NewCredentialStore()
	})
}

func TestFileCredentialStore(t *testing.T) {
	runCredentialStoreTest(t, func(t *testing.T) interfaces.CredentialStore {
		return file.NewCredentialStore(filepath.Join(t.TempDir(), "nested", "credential.toml"))
	})
}

func TestFirestoreCredentialStore(t *testing.T) {
	runCredentialStoreTest(t, func(t *testing.T) interfaces.CredentialStore {
		return newFirestoreRepository(t).Credential()
	})
}

func TestFileCredentialStorePermission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.toml")
	store := file.NewCredentialStore(path)
	gt.NoError(t, store.Write(context.Background(), newTestRecord())).Required()

	info, err := os.Stat(path)
	gt.NoError(t, err).Required()
	gt.Value(t, info.Mode().Perm()).Equal(os.FileMode(0o600))
}

func TestFileCredentialStoreCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.toml")
	gt.NoError(t, os.WriteFile(path, []byte("token = [broken"), 0o600)).Required()

	_, err := file.NewCredentialStore(path).Read(context.Background())
	gt.Error(t, err)
}
