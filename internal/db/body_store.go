package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// BodyStore caches rendered message bodies so unchanged messages are
// not re-sanitized on every fetch. Message bodies are immutable, so
// entries never need invalidation.
type BodyStore struct {
	db *sql.DB
}

// NewBodyStore creates a new body store
func NewBodyStore(store *Store) *BodyStore {
	return &BodyStore{
		db: store.DB(),
	}
}

// Load returns the cached rendered body for a message if present
func (s *BodyStore) Load(ctx context.Context, messageID string) (string, string, bool, error) {
	if s == nil || s.db == nil {
		return "", "", false, fmt.Errorf("body store not initialized")
	}
	var cleaned, original string
	err := s.db.QueryRowContext(ctx,
		`SELECT cleaned, original FROM message_bodies WHERE message_id=?`, messageID).
		Scan(&cleaned, &original)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return cleaned, original, true, nil
}

// Save upserts the rendered body for a message
func (s *BodyStore) Save(ctx context.Context, messageID, cleaned, original string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("body store not initialized")
	}
	if strings.TrimSpace(messageID) == "" {
		return fmt.Errorf("empty message id")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO message_bodies(message_id, cleaned, original, updated_at)
VALUES(?,?,?,?)
ON CONFLICT(message_id) DO UPDATE SET cleaned=excluded.cleaned, original=excluded.original, updated_at=excluded.updated_at;
`, messageID, cleaned, original, time.Now().Unix())
	return err
}
