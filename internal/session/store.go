package session

import (
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

const (
	keyToken = "token"
	keyEmail = "email"
)

// Store holds the persisted session credential. It survives restarts; an
// empty token means the unauthenticated state.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens the session store in the default data directory.
func New() (*Store, error) {
	path, err := defaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Open opens (and initializes) a session store at the given sqlite path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// defaultPath returns the session database location, using the XDG data
// directory with a home-directory fallback.
func defaultPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	appDir := filepath.Join(dataDir, "taskdeck")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(appDir, "session.db"), nil
}

// Token returns the current session token, or "" when unauthenticated.
func (s *Store) Token() string {
	return s.get(keyToken)
}

// SetToken persists the session token.
func (s *Store) SetToken(token string) error {
	return s.set(keyToken, token)
}

// Email returns the account email the session belongs to.
func (s *Store) Email() string {
	return s.get(keyEmail)
}

// SetEmail persists the account email for display.
func (s *Store) SetEmail(email string) error {
	return s.set(keyEmail, email)
}

// Clear removes the token and account email. Called on logout and on
// session-expiry detection.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM session")
	return err
}

func (s *Store) get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM session WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

func (s *Store) set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO session (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
