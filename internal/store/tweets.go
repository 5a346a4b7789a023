package store

import (
	"context"

	"github.com/petermazzocco/go-microblog-api/models"
	"gorm.io/gorm"
)

func (s *Store) CreateTweet(ctx context.Context, tweet *models.Tweet) error {
	return s.conn(ctx).Omit("Author", "Medias").Create(tweet).Error
}

func (s *Store) TweetByID(ctx context.Context, id uint) (models.Tweet, error) {
	var tweet models.Tweet
	err := s.conn(ctx).First(&tweet, id).Error
	return tweet, notFound(err)
}

// ListTweets returns every tweet in id order with author and media loaded.
func (s *Store) ListTweets(ctx context.Context) ([]models.Tweet, error) {
	var tweets []models.Tweet
	err := s.conn(ctx).
		Preload("Author").
		Preload("Medias", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		}).
		Order("tweets.id").
		Find(&tweets).Error
	return tweets, err
}

// DeleteTweet deletes a tweet together with its media rows and returns the
// removed media. Call it inside Transaction.
func (s *Store) DeleteTweet(ctx context.Context, id uint) ([]models.Media, error) {
	db := s.conn(ctx)

	var medias []models.Media
	if err := db.Where("tweet_id = ?", id).Order("id").Find(&medias).Error; err != nil {
		return nil, err
	}
	if len(medias) > 0 {
		if err := db.Delete(&medias).Error; err != nil {
			return nil, err
		}
	}

	res := db.Delete(&models.Tweet{}, id)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return medias, nil
}

// IncrementLikes adds one like in a single UPDATE so concurrent likes never
// lose an increment.
func (s *Store) IncrementLikes(ctx context.Context, id uint) error {
	res := s.conn(ctx).
		Model(&models.Tweet{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementLikes removes one like unless the counter is already zero. It
// reports whether a like was removed.
func (s *Store) DecrementLikes(ctx context.Context, id uint) (bool, error) {
	db := s.conn(ctx)
	res := db.
		Model(&models.Tweet{}).
		Where("id = ? AND likes > 0", id).
		UpdateColumn("likes", gorm.Expr("likes - ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := db.Model(&models.Tweet{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}
