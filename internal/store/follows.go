package store

import (
	"context"

	"github.com/petermazzocco/go-microblog-api/models"
	"gorm.io/gorm/clause"
)

// Follow inserts the edge follower -> followed. An existing edge is left as
// is and reported as ErrConflict.
func (s *Store) Follow(ctx context.Context, followerID, followedID uint) error {
	res := s.conn(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowedID: followedID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// Unfollow removes the edge follower -> followed, or returns ErrNotFound when
// there is none. The reverse edge is untouched.
func (s *Store) Unfollow(ctx context.Context, followerID, followedID uint) error {
	res := s.conn(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	err := s.conn(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}
