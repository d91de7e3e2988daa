package session

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "session.db"))

	if got := store.Token(); got != "" {
		t.Fatalf("expected empty token in a fresh store, got %q", got)
	}

	if err := store.SetToken("jwt-value"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if got := store.Token(); got != "jwt-value" {
		t.Fatalf("Token = %q, want jwt-value", got)
	}
}

func TestTokenSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.db")

	store := openTestStore(t, path)
	if err := store.SetToken("persisted"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := store.SetEmail("a@b.c"); err != nil {
		t.Fatalf("SetEmail: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := openTestStore(t, path)
	if got := reopened.Token(); got != "persisted" {
		t.Fatalf("Token after reopen = %q, want persisted", got)
	}
	if got := reopened.Email(); got != "a@b.c" {
		t.Fatalf("Email after reopen = %q, want a@b.c", got)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "session.db"))

	if err := store.SetToken("jwt-value"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := store.SetEmail("a@b.c"); err != nil {
		t.Fatalf("SetEmail: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := store.Token(); got != "" {
		t.Fatalf("expected empty token after clear, got %q", got)
	}
	if got := store.Email(); got != "" {
		t.Fatalf("expected empty email after clear, got %q", got)
	}
}

func TestSetTokenOverwrites(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, filepath.Join(t.TempDir(), "session.db"))

	if err := store.SetToken("first"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := store.SetToken("second"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if got := store.Token(); got != "second" {
		t.Fatalf("Token = %q, want second", got)
	}
}
