package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Profile is the stored account profile row
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	UpdatedAt int64  `json:"updated_at"`
}

// ProfileStore handles database operations for the account profile
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a new profile store
func NewProfileStore(store *Store) *ProfileStore {
	return &ProfileStore{
		db: store.DB(),
	}
}

// Get returns the stored profile, or nil when none has been saved
func (s *ProfileStore) Get(ctx context.Context) (*Profile, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("profile store not initialized")
	}
	p := &Profile{}
	var avatar sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, avatar_url, updated_at FROM profiles ORDER BY updated_at DESC LIMIT 1`).
		Scan(&p.ID, &p.Email, &p.Name, &avatar, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.AvatarURL = avatar.String
	return p, nil
}

// Upsert saves the profile, replacing any existing row for the same id
func (s *ProfileStore) Upsert(ctx context.Context, p *Profile) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("profile store not initialized")
	}
	if p == nil || strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("invalid profile")
	}
	id := p.ID
	if id == "" {
		id = p.Email
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, name, avatar_url, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`,
		id, p.Email, p.Name, p.AvatarURL, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
