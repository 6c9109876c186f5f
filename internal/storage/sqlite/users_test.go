package sqlite

import (
	"errors"
	"testing"

	"github.com/notefold/notefold/internal/storage"
	"github.com/notefold/notefold/internal/types"
)

func TestUserRoundTripWithSideRecords(t *testing.T) {
	e := newTestEnv(t)
	u := &types.User{
		ID:       42,
		Username: "alice",
		Email:    types.Ptr("alice@example.com"),
		Active:   true,
		Attributes: &types.UserAttributes{
			DefaultLocationName: types.Ptr("Berlin"),
			ReferralCount:       types.Ptr(int32(2)),
		},
		Accounting: &types.Accounting{
			UploadLimit: types.Ptr(int64(1 << 30)),
		},
		PremiumInfo: &types.PremiumInfo{
			Premium: types.Ptr(true),
		},
		BusinessUserInfo: &types.BusinessUserInfo{
			BusinessName: types.Ptr("ACME"),
		},
	}
	if err := e.Store.AddUser(e.Ctx, u); err != nil {
		t.Fatalf("AddUser() failed: %v", err)
	}

	got, err := e.Store.FindUser(e.Ctx, 42)
	if err != nil {
		t.Fatalf("FindUser() failed: %v", err)
	}
	if got.Username != "alice" || got.Email == nil || *got.Email != "alice@example.com" {
		t.Errorf("user fields lost: %+v", got)
	}
	if got.Attributes == nil || *got.Attributes.DefaultLocationName != "Berlin" || *got.Attributes.ReferralCount != 2 {
		t.Errorf("attributes lost: %+v", got.Attributes)
	}
	if got.Accounting == nil || *got.Accounting.UploadLimit != 1<<30 {
		t.Errorf("accounting lost: %+v", got.Accounting)
	}
	if got.PremiumInfo == nil || !*got.PremiumInfo.Premium {
		t.Errorf("premium info lost: %+v", got.PremiumInfo)
	}
	if got.BusinessUserInfo == nil || *got.BusinessUserInfo.BusinessName != "ACME" {
		t.Errorf("business info lost: %+v", got.BusinessUserInfo)
	}
	// An update with no premium block supersedes the stored one.
	u.PremiumInfo = nil
	if err := e.Store.UpdateUser(e.Ctx, u); err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}
	got, err = e.Store.FindUser(e.Ctx, 42)
	if err != nil {
		t.Fatalf("FindUser() failed: %v", err)
	}
	if got.PremiumInfo != nil {
		t.Errorf("premium info survived a superseding update: %+v", got.PremiumInfo)
	}
}

func TestAddUserTwiceConflicts(t *testing.T) {
	e := newTestEnv(t)
	u := &types.User{ID: 7, Username: "bob", Active: true}
	if err := e.Store.AddUser(e.Ctx, u); err != nil {
		t.Fatalf("AddUser() failed: %v", err)
	}
	if err := e.Store.AddUser(e.Ctx, u); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("AddUser(duplicate) = %v, want ErrConflict", err)
	}
}

func TestDeleteUserRequiresTimestamp(t *testing.T) {
	e := newTestEnv(t)
	u := &types.User{ID: 9, Username: "carol", Active: true}
	if err := e.Store.AddUser(e.Ctx, u); err != nil {
		t.Fatalf("AddUser() failed: %v", err)
	}

	// Delete marks, expunge removes: a delete with no timestamp is refused.
	if err := e.Store.DeleteUser(e.Ctx, &types.User{ID: 9, Username: "carol"}); !errors.Is(err, storage.ErrExpungePolicy) {
		t.Fatalf("DeleteUser(no timestamp) = %v, want ErrExpungePolicy", err)
	}

	del := &types.User{ID: 9, Username: "carol", DeletionTimestamp: types.Ptr(int64(5000))}
	if err := e.Store.DeleteUser(e.Ctx, del); err != nil {
		t.Fatalf("DeleteUser() failed: %v", err)
	}
	got, err := e.Store.FindUser(e.Ctx, 9)
	if err != nil {
		t.Fatalf("FindUser() failed: %v", err)
	}
	if got.DeletionTimestamp == nil || *got.DeletionTimestamp != 5000 || !got.Dirty {
		t.Errorf("deleted user state wrong: %+v", got)
	}
	count, err := e.Store.CountUsers(e.Ctx)
	if err != nil {
		t.Fatalf("CountUsers() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("CountUsers() = %d, want 0", count)
	}
}

func TestExpungeLocalUser(t *testing.T) {
	e := newTestEnv(t)
	u := &types.User{ID: 11, Username: "dave", Active: true, Local: true}
	if err := e.Store.AddUser(e.Ctx, u); err != nil {
		t.Fatalf("AddUser() failed: %v", err)
	}
	// Deleting a local user routes straight to expunge.
	if err := e.Store.DeleteUser(e.Ctx, u); err != nil {
		t.Fatalf("DeleteUser(local) failed: %v", err)
	}
	if _, err := e.Store.FindUser(e.Ctx, 11); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FindUser(expunged) = %v, want ErrNotFound", err)
	}
}
