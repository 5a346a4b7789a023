package store

import (
	"context"

	"github.com/petermazzocco/go-microblog-api/models"
)

func (s *Store) CreateMedia(ctx context.Context, media *models.Media) error {
	return s.conn(ctx).Omit("Tweet").Create(media).Error
}

func (s *Store) MediaByID(ctx context.Context, id uint) (models.Media, error) {
	var media models.Media
	err := s.conn(ctx).First(&media, id).Error
	return media, notFound(err)
}

// AttachMedia claims an unattached media row for a tweet. It fails with
// ErrNotFound when the media does not exist and ErrConflict when another tweet
// already owns it.
func (s *Store) AttachMedia(ctx context.Context, mediaID, tweetID uint) error {
	db := s.conn(ctx)
	res := db.
		Model(&models.Media{}).
		Where("id = ? AND tweet_id IS NULL", mediaID).
		UpdateColumn("tweet_id", tweetID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := s.MediaByID(ctx, mediaID); err != nil {
		return err
	}
	return ErrConflict
}
