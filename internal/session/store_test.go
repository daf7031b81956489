package session

import (
	"errors"
	"testing"

	"lectern/client/internal/api"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadWithoutLogin(t *testing.T) {
	store := openTestStore(t)
	if _, _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	if err := store.Save(api.Identity{ID: 42, Username: "ada"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	identity, loggedInAt, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if identity.ID != 42 || identity.Username != "ada" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if loggedInAt.IsZero() {
		t.Fatal("login time not recorded")
	}
}

func TestSaveReplacesPreviousIdentity(t *testing.T) {
	store := openTestStore(t)
	if err := store.Save(api.Identity{ID: 1, Username: "ada"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(api.Identity{ID: 2, Username: "bob"}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	identity, _, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if identity.Username != "bob" {
		t.Fatalf("previous identity survived: %+v", identity)
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	if err := store.Save(api.Identity{ID: 1, Username: "ada"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
	// Clearing again is a no-op.
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
