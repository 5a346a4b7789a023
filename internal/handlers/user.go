package handlers

import (
	"net/http"

	"github.com/petermazzocco/go-microblog-api/internal/service"
	"github.com/petermazzocco/go-microblog-api/models"
)

type userSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type profile struct {
	ID        uint          `json:"id"`
	Name      string        `json:"name"`
	Followers []userSummary `json:"followers"`
	Following []userSummary `json:"following"`
}

type profileResponse struct {
	Result bool    `json:"result"`
	User   profile `json:"user"`
}

type createUserResponse struct {
	Result bool        `json:"result"`
	User   userSummary `json:"user"`
}

func summaries(users []models.UserSummary) []userSummary {
	out := make([]userSummary, 0, len(users))
	for _, u := range users {
		out = append(out, userSummary{ID: u.ID, Name: u.Name})
	}
	return out
}

func toProfile(p service.Profile) profile {
	return profile{
		ID:        p.ID,
		Name:      p.Name,
		Followers: summaries(p.Followers),
		Following: summaries(p.Following),
	}
}

// GetMe returns the authenticated user's profile.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := actor(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeProfile(w, r, user.ID)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeProfile(w, r, id)
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, id uint) {
	p, err := h.api.Profile(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profileResponse{Result: true, User: toProfile(p)})
}

// CreateUser registers a user from the name and api_key parameters, taken
// from the query string or a form body.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.api.Register(r.Context(), r.FormValue("name"), r.FormValue("api_key"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, createUserResponse{
		Result: true,
		User:   userSummary{ID: user.ID, Name: user.Name},
	})
}

func (h *Handler) FollowUser(w http.ResponseWriter, r *http.Request) {
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
	if err := h.api.Follow(r.Context(), user, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Result: true})
}

func (h *Handler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
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
	if err := h.api.Unfollow(r.Context(), user, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Result: true})
}
