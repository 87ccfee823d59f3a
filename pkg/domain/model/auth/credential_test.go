package auth_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/kizuna/pkg/domain/model"
	"github.com/secmon-lab/kizuna/pkg/domain/model/auth"
)

func TestCredentialRecordValidate(t *testing.T) {
	user := &model.UserProfile{ID: "7", Name: "Alice"}

	t.Run("valid record", func(t *testing.T) {
		gt.NoError(t, auth.NewCredentialRecord("t", user).Validate())
	})

	t.Run("empty token", func(t *testing.T) {
		gt.Error(t, auth.NewCredentialRecord("", user).Validate())
	})

	t.Run("missing user", func(t *testing.T) {
		rec := &auth.CredentialRecord{Token: "t", IssuedAt: time.Now()}
		gt.Error(t, rec.Validate())
	})

	t.Run("nil record", func(t *testing.T) {
		var rec *auth.CredentialRecord
		gt.Error(t, rec.Validate())
	})
}

func TestCredentialRecordRenew(t *testing.T) {
	user := &model.UserProfile{ID: "7", Name: "Alice"}
	rec := auth.NewCredentialRecord("old", user)

	now := time.Now().Add(time.Hour)
	renewed := rec.Renew("new", now)

	gt.Value(t, renewed.Token).Equal("new")
	gt.Bool(t, renewed.IssuedAt.Equal(now.UTC())).True()
	gt.Value(t, renewed.User.ID).Equal(user.ID)
	gt.Value(t, rec.Token).Equal("old")
}

func TestNewCredentialRecordCopiesUser(t *testing.T) {
	user := &model.UserProfile{ID: "7", Name: "Alice"}
	rec := auth.NewCredentialRecord("t", user)

	user.Name = "Changed"
	gt.Value(t, rec.User.Name).Equal("Alice")
}
