package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/titouancv/courriels/internal/db"
	"github.com/titouancv/courriels/internal/gmail"
)

// AccountServiceImpl resolves the signed-in account's profile, serving
// from the local store and falling back to the provider.
type AccountServiceImpl struct {
	client *gmail.Client
	store  *db.ProfileStore
	logger *log.Logger
}

func NewAccountService(client *gmail.Client, store *db.ProfileStore) *AccountServiceImpl {
	return &AccountServiceImpl{client: client, store: store}
}

// SetLogger sets the logger for this service
func (s *AccountServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// GetProfile returns the account profile. A stored profile is served
// without touching the provider; on a store miss the provider is asked
// and the result persisted for next time.
func (s *AccountServiceImpl) GetProfile(ctx context.Context) (*Profile, error) {
	if s.store != nil {
		if row, err := s.store.Get(ctx); err == nil && row != nil {
			return profileFromRow(row), nil
		} else if err != nil && s.logger != nil {
			s.logger.Printf("account: profile store read failed: %v", err)
		}
	}

	remote, err := s.client.GetProfile(ctx)
	if err != nil {
		if gmail.IsAuthError(err) {
			return nil, fmt.Errorf("get profile: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	profile := &Profile{
		ID:    remote.EmailAddress,
		Email: remote.EmailAddress,
		Name:  displayNameFromEmail(remote.EmailAddress),
	}
	if err := s.SaveProfile(ctx, profile); err != nil && s.logger != nil {
		s.logger.Printf("account: profile save failed: %v", err)
	}
	return profile, nil
}

// SaveProfile upserts the profile into the local store.
func (s *AccountServiceImpl) SaveProfile(ctx context.Context, profile *Profile) error {
	if profile == nil || profile.Email == "" {
		return ErrInvalidInput
	}
	if s.store == nil {
		return nil
	}
	return s.store.Upsert(ctx, &db.Profile{
		ID:        profile.ID,
		Email:     profile.Email,
		Name:      profile.Name,
		AvatarURL: profile.AvatarURL,
	})
}

func profileFromRow(row *db.Profile) *Profile {
	return &Profile{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		AvatarURL: row.AvatarURL,
		UpdatedAt: time.Unix(row.UpdatedAt, 0),
	}
}

func displayNameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	return local
}
