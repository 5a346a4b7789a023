package service

import (
	"context"
	"io"

	"github.com/petermazzocco/go-microblog-api/internal/apperr"
	"github.com/petermazzocco/go-microblog-api/models"
	"github.com/sirupsen/logrus"
)

// UploadMedia stores the bytes and records an unattached media row. If the
// row cannot be written the stored blob is removed again.
func (s *Service) UploadMedia(ctx context.Context, filename, contentType string, r io.Reader) (uint, error) {
	ref, err := s.blobs.Put(ctx, filename, contentType, r)
	if err != nil {
		return 0, apperr.Wrap(err)
	}

	media := models.Media{FilePath: ref}
	if err := s.store.CreateMedia(ctx, &media); err != nil {
		if derr := s.blobs.Delete(ctx, ref); derr != nil {
			s.log.WithError(derr).Warn("Failed to clean up media blob")
		}
		return 0, apperr.Wrap(err)
	}

	s.metrics.MediaUploaded.Inc()
	s.log.WithFields(logrus.Fields{"media_id": media.ID, "filename": filename}).Info("Media uploaded")
	return media.ID, nil
}
