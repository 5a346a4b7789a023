package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/petermazzocco/go-microblog-api/internal/apperr"
	"github.com/petermazzocco/go-microblog-api/internal/service"
)

const maxTweetBody = 1 << 20

type tweetRequest struct {
	TweetData     *string `json:"tweet_data"`
	TweetMediaIDs []uint  `json:"tweet_media_ids"`
}

type liker struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
}

type tweet struct {
	ID          uint        `json:"id"`
	Content     string      `json:"content"`
	Attachments []string    `json:"attachments"`
	Author      userSummary `json:"author"`
	Likes       []liker     `json:"likes"`
	LikeCount   int         `json:"like_count"`
}

type tweetsResponse struct {
	Result bool    `json:"result"`
	Tweets []tweet `json:"tweets"`
}

type createTweetResponse struct {
	Result  bool `json:"result"`
	TweetID uint `json:"tweet_id"`
}

type unlikeResponse struct {
	Result  bool   `json:"result"`
	Message string `json:"message,omitempty"`
}

func toTweet(v service.TweetView) tweet {
	likes := make([]liker, 0, len(v.Likes))
	for _, u := range v.Likes {
		likes = append(likes, liker{UserID: u.ID, Name: u.Name})
	}
	attachments := v.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return tweet{
		ID:          v.ID,
		Content:     v.Content,
		Attachments: attachments,
		Author:      userSummary{ID: v.Author.ID, Name: v.Author.Name},
		Likes:       likes,
		LikeCount:   v.LikeCount,
	}
}

func (h *Handler) ListTweets(w http.ResponseWriter, r *http.Request) {
	views, err := h.api.ListTweets(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tweets := make([]tweet, 0, len(views))
	for _, v := range views {
		tweets = append(tweets, toTweet(v))
	}
	h.writeJSON(w, http.StatusOK, tweetsResponse{Result: true, Tweets: tweets})
}

// CreateTweet posts a tweet as the authenticated user.
func (h *Handler) CreateTweet(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTweetBody)).Decode(&req); err != nil {
		h.writeError(w, r, apperr.New(apperr.Invalid, "invalid tweet payload"))
		return
	}
	if req.TweetData == nil {
		h.writeError(w, r, apperr.New(apperr.Invalid, "tweet_data is required"))
		return
	}

	id, err := h.api.CreateTweet(r.Context(), user, *req.TweetData, req.TweetMediaIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, createTweetResponse{Result: true, TweetID: id})
}

func (h *Handler) DeleteTweet(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.api.DeleteTweet(r.Context(), user, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Result: true})
}

func (h *Handler) LikeTweet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.api.Like(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Result: true})
}

// UnlikeTweet answers 200 with result false when there is nothing to remove.
func (h *Handler) UnlikeTweet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	removed, err := h.api.Unlike(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !removed {
		h.writeJSON(w, http.StatusOK, unlikeResponse{Result: false, Message: "Tweet has no likes to delete"})
		return
	}
	h.writeJSON(w, http.StatusOK, unlikeResponse{Result: true})
}
