package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/petermazzocco/go-microblog-api/internal/apperr"
	"github.com/petermazzocco/go-microblog-api/internal/auth"
	"github.com/petermazzocco/go-microblog-api/internal/metrics"
	"github.com/petermazzocco/go-microblog-api/internal/service"
	"github.com/petermazzocco/go-microblog-api/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// API is the set of use cases the HTTP layer calls into.
type API interface {
	auth.Authenticator
	Ping(ctx context.Context) error
	Register(ctx context.Context, name, apiKey string) (models.User, error)
	Profile(ctx context.Context, userID uint) (service.Profile, error)
	ListTweets(ctx context.Context) ([]service.TweetView, error)
	CreateTweet(ctx context.Context, actor models.User, content string, mediaIDs []uint) (uint, error)
	DeleteTweet(ctx context.Context, actor models.User, tweetID uint) error
	Like(ctx context.Context, tweetID uint) error
	Unlike(ctx context.Context, tweetID uint) (bool, error)
	UploadMedia(ctx context.Context, filename, contentType string, r io.Reader) (uint, error)
	Follow(ctx context.Context, actor models.User, targetID uint) error
	Unfollow(ctx context.Context, actor models.User, targetID uint) error
}

type Options struct {
	RateLimit      int
	SlowRequest    time.Duration
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
}

type Handler struct {
	api  API
	log  logrus.FieldLogger
	opts Options
}

func New(api API, log logrus.FieldLogger, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.SlowRequest <= 0 {
		opts.SlowRequest = 2 * time.Second
	}
	return &Handler{api: api, log: log, opts: opts}
}

// Routes builds the chi router for the whole API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.log, h.opts.SlowRequest))
	if h.opts.Metrics != nil {
		r.Use(h.opts.Metrics.Middleware)
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if h.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	requireUser := auth.UserMiddleware(h.api, h.writeError)

	r.Route("/api", func(r chi.Router) {
		if h.opts.RateLimit > 0 {
			r.Use(httprate.Limit(
				h.opts.RateLimit,
				1*time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					h.writeJSON(w, http.StatusTooManyRequests, errorResponse{Detail: "Too many requests"})
				}),
			))
		}

		r.With(requireUser).Get("/users/me", h.GetMe)
		r.Post("/users/me", h.CreateUser)
		r.Get("/users/{id}", h.GetUser)
		r.With(requireUser).Post("/users/{id}/follow", h.FollowUser)
		r.With(requireUser).Delete("/users/{id}/follow", h.UnfollowUser)

		r.Get("/tweets", h.ListTweets)
		r.With(requireUser).Post("/tweets", h.CreateTweet)
		r.With(requireUser).Delete("/tweets/{id}", h.DeleteTweet)
		r.Post("/tweets/{id}/likes", h.LikeTweet)
		r.Delete("/tweets/{id}/likes", h.UnlikeTweet)

		r.Post("/medias", h.UploadMedia)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.api.Ping(r.Context()); err != nil {
		h.writeError(w, r, apperr.Wrap(err))
		return
	}
	h.writeJSON(w, http.StatusOK, resultResponse{Result: true})
}

type resultResponse struct {
	Result bool `json:"result"`
}

type errorResponse struct {
	Result bool   `json:"result"`
	Detail string `json:"detail"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("Failed to write response")
	}
}

// writeError renders err as an error envelope. Internal errors are logged
// here, once, at the edge.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method":     r.Method,
			"route":      metrics.RoutePattern(r),
			"request_id": middleware.GetReqID(r.Context()),
		}).Error("Request failed")
	}
	h.writeJSON(w, apperr.Status(kind), errorResponse{Detail: err.Error()})
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.Invalid, "id must be a positive integer")
	}
	return uint(id), nil
}

// actor is only called behind UserMiddleware.
func actor(r *http.Request) (models.User, error) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		return models.User{}, apperr.New(apperr.Unauthorized, "API key authentication failed")
	}
	return user, nil
}
