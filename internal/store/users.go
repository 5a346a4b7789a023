package store

import (
	"context"
	"errors"

	"github.com/petermazzocco/go-microblog-api/models"
	"gorm.io/gorm"
)

// CreateUser inserts a user. A taken api key is reported as ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	err := s.conn(ctx).Omit("Tweets").Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (s *Store) UserByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := s.conn(ctx).First(&user, id).Error
	return user, notFound(err)
}

func (s *Store) UserByAPIKey(ctx context.Context, apiKey string) (models.User, error) {
	var user models.User
	err := s.conn(ctx).Where("api_key = ?", apiKey).First(&user).Error
	return user, notFound(err)
}

// Followers returns the users following userID, ordered by id.
func (s *Store) Followers(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := s.conn(ctx).
		Table("users").
		Select("users.id, users.name").
		Joins("JOIN user_followers ON user_followers.follower_id = users.id").
		Where("user_followers.followed_id = ?", userID).
		Order("users.id").
		Scan(&users).Error
	return users, err
}

// Following returns the users that userID follows, ordered by id.
func (s *Store) Following(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := s.conn(ctx).
		Table("users").
		Select("users.id, users.name").
		Joins("JOIN user_followers ON user_followers.followed_id = users.id").
		Where("user_followers.follower_id = ?", userID).
		Order("users.id").
		Scan(&users).Error
	return users, err
}

// FollowersOf batches Followers for several users in one query.
func (s *Store) FollowersOf(ctx context.Context, userIDs []uint) (map[uint][]models.UserSummary, error) {
	out := make(map[uint][]models.UserSummary, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		FollowedID uint
		ID         uint
		Name       string
	}
	err := s.conn(ctx).
		Table("user_followers").
		Select("user_followers.followed_id, users.id, users.name").
		Joins("JOIN users ON users.id = user_followers.follower_id").
		Where("user_followers.followed_id IN ?", userIDs).
		Order("user_followers.followed_id, users.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.FollowedID] = append(out[row.FollowedID], models.UserSummary{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

// DeleteUser removes a user and everything it owns: follow edges in both
// directions, the media of its tweets, and the tweets. It returns the media
// rows that were removed so their blobs can be cleaned up. Call it inside
// Transaction.
func (s *Store) DeleteUser(ctx context.Context, id uint) ([]models.Media, error) {
	db := s.conn(ctx)
	if _, err := s.UserByID(ctx, id); err != nil {
		return nil, err
	}

	if err := db.Where("follower_id = ? OR followed_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
		return nil, err
	}

	tweetIDs := db.Model(&models.Tweet{}).Select("id").Where("author_id = ?", id)
	var medias []models.Media
	if err := db.Where("tweet_id IN (?)", tweetIDs).Find(&medias).Error; err != nil {
		return nil, err
	}
	if len(medias) > 0 {
		if err := db.Delete(&medias).Error; err != nil {
			return nil, err
		}
	}
	if err := db.Where("author_id = ?", id).Delete(&models.Tweet{}).Error; err != nil {
		return nil, err
	}

	res := db.Delete(&models.User{}, id)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return medias, nil
}
