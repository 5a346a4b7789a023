package service

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/petermazzocco/go-microblog-api/internal/apperr"
	"github.com/petermazzocco/go-microblog-api/internal/store"
	"github.com/petermazzocco/go-microblog-api/models"
	"github.com/sirupsen/logrus"
)

const (
	maxNameLen   = 30
	maxAPIKeyLen = 64

	msgAuthFailed   = "API key authentication failed"
	msgUserNotFound = "User not found"
)

type Profile struct {
	ID        uint
	Name      string
	Followers []models.UserSummary
	Following []models.UserSummary
}

// Authenticate resolves an api key to its user. Unknown keys are Unauthorized.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (models.User, error) {
	user, err := s.store.UserByAPIKey(ctx, apiKey)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, apperr.New(apperr.Unauthorized, msgAuthFailed)
	}
	if err != nil {
		return models.User{}, apperr.Wrap(err)
	}
	return user, nil
}

// Register creates a user. Keys are unique so two users can never
// authenticate as each other.
func (s *Service) Register(ctx context.Context, name, apiKey string) (models.User, error) {
	switch {
	case name == "" || apiKey == "":
		return models.User{}, apperr.New(apperr.Invalid, "name and api_key are required")
	case utf8.RuneCountInString(name) > maxNameLen:
		return models.User{}, apperr.New(apperr.Invalid, "name must be at most 30 characters")
	case len(apiKey) > maxAPIKeyLen:
		return models.User{}, apperr.New(apperr.Invalid, "api_key must be at most 64 characters")
	}

	user := models.User{Name: name, APIKey: apiKey}
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		return tx.CreateUser(ctx, &user)
	})
	if errors.Is(err, store.ErrConflict) {
		return models.User{}, apperr.New(apperr.Conflict, "API key is already in use")
	}
	if err != nil {
		return models.User{}, apperr.Wrap(err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "name": user.Name}).Info("User registered")
	return user, nil
}

// Profile returns a user with both sides of its follow graph.
func (s *Service) Profile(ctx context.Context, userID uint) (Profile, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return Profile{}, translate(err, msgUserNotFound)
	}

	followers, err := s.store.Followers(ctx, user.ID)
	if err != nil {
		return Profile{}, apperr.Wrap(err)
	}
	following, err := s.store.Following(ctx, user.ID)
	if err != nil {
		return Profile{}, apperr.Wrap(err)
	}

	return Profile{
		ID:        user.ID,
		Name:      user.Name,
		Followers: followers,
		Following: following,
	}, nil
}

// DeleteUser removes a user with its tweets, their media and every follow edge
// touching it. There is no HTTP route for this; the CLI calls it.
func (s *Service) DeleteUser(ctx context.Context, userID uint) error {
	var medias []models.Media
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		medias, err = tx.DeleteUser(ctx, userID)
		return err
	})
	if err != nil {
		return translate(err, msgUserNotFound)
	}

	s.removeBlobs(ctx, medias)
	s.log.WithFields(logrus.Fields{"user_id": userID, "media": len(medias)}).Info("User deleted")
	return nil
}
