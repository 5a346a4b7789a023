package service

import (
	"context"
	"errors"

	"github.com/petermazzocco/go-microblog-api/internal/apperr"
	"github.com/petermazzocco/go-microblog-api/internal/store"
	"github.com/petermazzocco/go-microblog-api/models"
	"github.com/sirupsen/logrus"
)

// Follow adds the edge actor -> target. Following yourself is allowed.
func (s *Service) Follow(ctx context.Context, actor models.User, targetID uint) error {
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := tx.UserByID(ctx, targetID); err != nil {
			return translate(err, msgUserNotFound)
		}
		err := tx.Follow(ctx, actor.ID, targetID)
		if errors.Is(err, store.ErrConflict) {
			return apperr.New(apperr.Conflict, "You already subscribed")
		}
		return err
	})
	if err != nil {
		return apperr.Wrap(err)
	}

	s.metrics.Follows.WithLabelValues("follow").Inc()
	s.log.WithFields(logrus.Fields{"user_id": actor.ID, "target_id": targetID}).Info("User followed")
	return nil
}

// Unfollow removes the edge actor -> target. The reverse edge is untouched.
func (s *Service) Unfollow(ctx context.Context, actor models.User, targetID uint) error {
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := tx.UserByID(ctx, targetID); err != nil {
			return translate(err, msgUserNotFound)
		}
		err := tx.Unfollow(ctx, actor.ID, targetID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.InvalidState, "You are not subscribed")
		}
		return err
	})
	if err != nil {
		return apperr.Wrap(err)
	}

	s.metrics.Follows.WithLabelValues("unfollow").Inc()
	s.log.WithFields(logrus.Fields{"user_id": actor.ID, "target_id": targetID}).Info("User unfollowed")
	return nil
}
