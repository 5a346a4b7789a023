package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petermazzocco/go-microblog-api/internal/apperr"
	"github.com/petermazzocco/go-microblog-api/internal/store"
	"github.com/petermazzocco/go-microblog-api/models"
	"github.com/sirupsen/logrus"
)

const msgTweetNotFound = "Tweet not found"

type TweetView struct {
	ID          uint
	Content     string
	CreatedAt   time.Time
	Attachments []string
	Author      models.UserSummary
	Likes       []models.UserSummary
	LikeCount   int
}

// authorFollowersAsLikes picks what the feed shows as a tweet's "likes".
// Individual likes are not recorded, so the feed has always listed the
// author's followers here. Clients rely on the shape; switching to real
// likers only needs this function to change.
func authorFollowersAsLikes(followersByAuthor map[uint][]models.UserSummary, tweet models.Tweet) []models.UserSummary {
	return followersByAuthor[tweet.AuthorID]
}

// ListTweets returns every tweet in creation order.
func (s *Service) ListTweets(ctx context.Context) ([]TweetView, error) {
	tweets, err := s.store.ListTweets(ctx)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	authorIDs := make([]uint, 0, len(tweets))
	seen := make(map[uint]bool, len(tweets))
	for _, t := range tweets {
		if !seen[t.AuthorID] {
			seen[t.AuthorID] = true
			authorIDs = append(authorIDs, t.AuthorID)
		}
	}
	followers, err := s.store.FollowersOf(ctx, authorIDs)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	views := make([]TweetView, 0, len(tweets))
	for _, t := range tweets {
		view := TweetView{
			ID:          t.ID,
			Content:     t.Content,
			CreatedAt:   t.CreatedAt,
			Attachments: make([]string, 0, len(t.Medias)),
			Likes:       authorFollowersAsLikes(followers, t),
			LikeCount:   t.Likes,
		}
		if t.Author != nil {
			view.Author = models.UserSummary{ID: t.Author.ID, Name: t.Author.Name}
		}
		for _, m := range t.Medias {
			view.Attachments = append(view.Attachments, m.FilePath)
		}
		views = append(views, view)
	}
	return views, nil
}

// CreateTweet posts a tweet for actor and attaches the given media in the
// same transaction. An unknown or already attached media id aborts the whole
// operation: neither the tweet nor any attachment is kept.
func (s *Service) CreateTweet(ctx context.Context, actor models.User, content string, mediaIDs []uint) (uint, error) {
	tweet := models.Tweet{Content: content, AuthorID: actor.ID}

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateTweet(ctx, &tweet); err != nil {
			return apperr.Wrap(err)
		}
		for _, id := range dedupe(mediaIDs) {
			err := tx.AttachMedia(ctx, id, tweet.ID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				return apperr.New(apperr.NotFound, fmt.Sprintf("Media with id %d not found", id))
			case errors.Is(err, store.ErrConflict):
				return apperr.New(apperr.Conflict, fmt.Sprintf("Media with id %d is already attached to a tweet", id))
			case err != nil:
				return apperr.Wrap(err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Wrap(err)
	}

	s.metrics.TweetsCreated.Inc()
	s.log.WithFields(logrus.Fields{"tweet_id": tweet.ID, "user_id": actor.ID, "media": len(mediaIDs)}).Info("Tweet created")
	return tweet.ID, nil
}

// DeleteTweet removes a tweet owned by actor along with its media.
func (s *Service) DeleteTweet(ctx context.Context, actor models.User, tweetID uint) error {
	var medias []models.Media
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		tweet, err := tx.TweetByID(ctx, tweetID)
		if err != nil {
			return translate(err, msgTweetNotFound)
		}
		if tweet.AuthorID != actor.ID {
			return apperr.New(apperr.Forbidden, "You can only delete your tweets")
		}
		medias, err = tx.DeleteTweet(ctx, tweetID)
		return translate(err, msgTweetNotFound)
	})
	if err != nil {
		return apperr.Wrap(err)
	}

	s.removeBlobs(ctx, medias)
	s.metrics.TweetsDeleted.Inc()
	s.log.WithFields(logrus.Fields{"tweet_id": tweetID, "user_id": actor.ID}).Info("Tweet deleted")
	return nil
}

// Like adds one like. Likes are not tied to a user, so repeated calls keep
// counting.
func (s *Service) Like(ctx context.Context, tweetID uint) error {
	if err := s.store.IncrementLikes(ctx, tweetID); err != nil {
		return translate(err, msgTweetNotFound)
	}
	s.metrics.Likes.WithLabelValues("like").Inc()
	return nil
}

// Unlike removes one like. It reports false, without error, when the counter
// is already zero.
func (s *Service) Unlike(ctx context.Context, tweetID uint) (bool, error) {
	var removed bool
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		removed, err = tx.DecrementLikes(ctx, tweetID)
		return err
	})
	if err != nil {
		return false, translate(err, msgTweetNotFound)
	}
	if removed {
		s.metrics.Likes.WithLabelValues("unlike").Inc()
	}
	return removed, nil
}

func dedupe(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
