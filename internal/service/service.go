// Package service holds the use cases behind the HTTP API: registration,
// profiles, tweets, likes, media uploads and the follow graph. Every mutation
// runs in one store transaction and reports failures as apperr kinds.
package service

import (
	"context"
	"errors"

	"github.com/petermazzocco/go-microblog-api/internal/apperr"
	"github.com/petermazzocco/go-microblog-api/internal/blob"
	"github.com/petermazzocco/go-microblog-api/internal/metrics"
	"github.com/petermazzocco/go-microblog-api/internal/store"
	"github.com/petermazzocco/go-microblog-api/models"
	"github.com/sirupsen/logrus"
)

type Service struct {
	store   *store.Store
	blobs   blob.Store
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func New(st *store.Store, blobs blob.Store, log logrus.FieldLogger, m *metrics.Metrics) *Service {
	return &Service{store: st, blobs: blobs, log: log, metrics: m}
}

// Ping reports whether the database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// translate maps store sentinels onto the error taxonomy. Anything it does
// not recognise is an Internal error.
func translate(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) && notFound != "" {
		return apperr.New(apperr.NotFound, notFound)
	}
	return apperr.Wrap(err)
}

// removeBlobs deletes the stored bytes of media rows that are already gone
// from the database. Failures leave orphaned objects and are only logged.
func (s *Service) removeBlobs(ctx context.Context, medias []models.Media) {
	for _, m := range medias {
		if err := s.blobs.Delete(ctx, m.FilePath); err != nil {
			s.log.WithError(err).WithField("media_id", m.ID).Warn("Failed to delete media blob")
		}
	}
}
