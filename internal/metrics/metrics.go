package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TweetsCreated   prometheus.Counter
	TweetsDeleted   prometheus.Counter
	Likes           *prometheus.CounterVec
	Follows         *prometheus.CounterVec
	MediaUploaded   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		TweetsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweets_created_total",
			Help: "Total number of tweets created",
		}),
		TweetsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweets_deleted_total",
			Help: "Total number of tweets deleted",
		}),
		Likes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "likes_total",
				Help: "Total number of like and unlike operations that changed a counter",
			},
			[]string{"op"},
		),
		Follows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "follows_total",
				Help: "Total number of successful follow and unfollow requests",
			},
			[]string{"op"},
		),
		MediaUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "media_uploaded_total",
			Help: "Total number of media files uploaded",
		}),
	}

	reg.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.TweetsCreated,
		m.TweetsDeleted,
		m.Likes,
		m.Follows,
		m.MediaUploaded,
	)
	return m
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := RoutePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RoutePattern returns the matched chi pattern, or "unmatched" so unknown
// paths cannot blow up label cardinality.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
