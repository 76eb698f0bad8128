package household

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/chorewheel/internal/activity"
	"github.com/dukerupert/chorewheel/internal/apperr"
	"github.com/dukerupert/chorewheel/internal/database"
	"github.com/dukerupert/chorewheel/internal/store"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	recorder := activity.NewRecorder(store.NewActivityStore(db), nil, nil, slog.Default())
	return NewService(store.NewHouseholdStore(db), store.NewSessionStore(db), store.NewFamilyMemberStore(db), recorder, time.Hour, slog.Default())
}

func TestInitials(t *testing.T) {
	tests := map[string]string{
		"Alice":             "A",
		"mary jane":         "MJ",
		"Jean Luc Picard":   "JL",
		"  bob   the  cat ": "BT",
		"":                  "",
		"ümit yilmaz":       "ÜY",
	}
	for name, want := range tests {
		if got := Initials(name); got != want {
			t.Errorf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestCreateAndLogin(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	var verr *apperr.ValidationError
	if _, err := svc.Create(ctx, "Smiths", "123"); !errors.As(err, &verr) {
		t.Errorf("short passcode err = %v, want ValidationError", err)
	}

	h, err := svc.Create(ctx, "Smiths", "secret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "Smiths", "another"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}

	if _, err := svc.Login(ctx, "Smiths", "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("wrong passcode err = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Login(ctx, "Joneses", "secret"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("unknown household err = %v, want ErrUnauthorized", err)
	}

	sess, err := svc.Login(ctx, "Smiths", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.HouseholdID != h.ID || len(sess.Token) != 64 {
		t.Errorf("session = %+v, want 64 char token for household %d", sess, h.ID)
	}
	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
}

func TestCreateMember(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	h, err := svc.Create(ctx, "Smiths", "secret")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	m, err := svc.CreateMember(ctx, h.ID, "Mary Jane", "", "")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if m.Initials != "MJ" || m.Color != DefaultColor {
		t.Errorf("member = %+v, want derived initials and default color", m)
	}

	if _, err := svc.CreateMember(ctx, h.ID, "Mary Jane", "", ""); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate name err = %v, want ErrConflict", err)
	}
	var verr *apperr.ValidationError
	if _, err := svc.CreateMember(ctx, h.ID, "Tom", "", "blue"); !errors.As(err, &verr) {
		t.Errorf("bad color err = %v, want ValidationError", err)
	}

	members, err := svc.ListMembers(ctx, h.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("members = %d, want 1", len(members))
	}
}
