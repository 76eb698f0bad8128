package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/chorewheel/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedHousehold creates a household and returns its id.
func seedHousehold(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	h, err := NewHouseholdStore(db).Create(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return h.ID
}

func seedMember(t *testing.T, db *sql.DB, householdID int64, name string) int64 {
	t.Helper()
	m, err := NewFamilyMemberStore(db).Create(context.Background(), householdID, name, name[:1], "#3B82F6")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m.ID
}

func TestHouseholdCreate(t *testing.T) {
	db := setupTestDB(t)
	hs := NewHouseholdStore(db)
	ctx := context.Background()

	h, err := hs.Create(ctx, "The Smiths", "hash")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if h.Name != "The Smiths" {
		t.Errorf("name = %q, want %q", h.Name, "The Smiths")
	}
	if h.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if h.PasscodeHash != "hash" {
		t.Errorf("passcode_hash = %q, want %q", h.PasscodeHash, "hash")
	}

	if _, err := hs.Create(ctx, "The Smiths", "other"); err == nil {
		t.Error("expected error for duplicate household name")
	}
}

func TestHouseholdGetByName(t *testing.T) {
	db := setupTestDB(t)
	hs := NewHouseholdStore(db)
	ctx := context.Background()

	created, err := hs.Create(ctx, "The Smiths", "hash")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	h, err := hs.GetByName(ctx, "The Smiths")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if h == nil || h.ID != created.ID {
		t.Fatalf("get by name = %+v, want id %d", h, created.ID)
	}

	missing, err := hs.GetByName(ctx, "Nobody")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent household")
	}
}

func TestHouseholdGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	hs := NewHouseholdStore(db)

	h, err := hs.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if h != nil {
		t.Error("expected nil for nonexistent household")
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSessionStore(db)
	ctx := context.Background()
	hh := seedHousehold(t, db, "Home")

	sess, err := ss.Create(ctx, hh, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}

	got, err := ss.GetByToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.HouseholdID != hh {
		t.Fatalf("get by token = %+v, want household %d", got, hh)
	}

	if err := ss.DeleteByToken(ctx, sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = ss.GetByToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionExpired(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSessionStore(db)
	ctx := context.Background()
	hh := seedHousehold(t, db, "Home")

	sess, err := ss.Create(ctx, hh, -time.Minute)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := ss.GetByToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected expired session to be ignored")
	}

	n, err := ss.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestFamilyMembers(t *testing.T) {
	db := setupTestDB(t)
	ms := NewFamilyMemberStore(db)
	ctx := context.Background()
	hh := seedHousehold(t, db, "Home")
	other := seedHousehold(t, db, "Elsewhere")

	alice := seedMember(t, db, hh, "Alice")
	seedMember(t, db, hh, "Bob")
	stranger := seedMember(t, db, other, "Carol")

	members, err := ms.List(ctx, hh)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len = %d, want 2", len(members))
	}

	exists, err := ms.NameExists(ctx, hh, "Alice")
	if err != nil {
		t.Fatalf("name exists: %v", err)
	}
	if !exists {
		t.Error("expected Alice to exist")
	}

	missing, err := ms.Missing(ctx, hh, []int64{alice, stranger, 999})
	if err != nil {
		t.Fatalf("missing: %v", err)
	}
	if len(missing) != 2 || missing[0] != stranger || missing[1] != 999 {
		t.Errorf("missing = %v, want [%d 999]", missing, stranger)
	}

	m, err := ms.GetByID(ctx, other, alice)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if m != nil {
		t.Error("expected member lookup to be scoped to its household")
	}
}
