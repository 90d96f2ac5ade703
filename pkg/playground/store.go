package playground

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

var ErrSnippetNotFound = errors.New("snippet not found")

type Snippet struct {
	ID      string    `json:"id"`
	Digest  string    `json:"digest"`
	Source  string    `json:"source,omitempty"`
	Created time.Time `json:"created"`
}

// Store persists shared snippets in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the snippet database at path.
// ":memory:" gives a private in-memory store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snippets (
		id TEXT PRIMARY KEY,
		digest TEXT NOT NULL,
		source TEXT NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores source under a new id.
func (s *Store) Save(ctx context.Context, source string) (*Snippet, error) {
	sum := blake2b.Sum256([]byte(source))
	snip := &Snippet{
		ID:      uuid.NewString(),
		Digest:  hex.EncodeToString(sum[:]),
		Source:  source,
		Created: time.Now().UTC().Truncate(time.Second),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO snippets (id, digest, source, created) VALUES (?, ?, ?, ?)",
		snip.ID, snip.Digest, snip.Source, snip.Created.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("saving snippet: %w", err)
	}
	return snip, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Snippet, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSnippetNotFound
	}

	snip := &Snippet{ID: id}
	var created int64
	err := s.db.QueryRowContext(ctx,
		"SELECT digest, source, created FROM snippets WHERE id = ?", id,
	).Scan(&snip.Digest, &snip.Source, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnippetNotFound
		}
		return nil, fmt.Errorf("querying snippet: %w", err)
	}
	snip.Created = time.Unix(created, 0).UTC()
	return snip, nil
}
