package handlers

import (
	"errors"
	"net/http"

	"github.com/petermazzocco/go-microblog-api/internal/apperr"
)

// multipart parts beyond this size spill to temp files
const maxMemory = 8 << 20

type uploadResponse struct {
	Result  bool `json:"result"`
	MediaID uint `json:"media_id"`
}

// UploadMedia stores the multipart "file" field and returns the new media id.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, apperr.New(apperr.Invalid, "file exceeds the maximum upload size"))
			return
		}
		h.writeError(w, r, apperr.New(apperr.Invalid, "a multipart file upload is required"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, apperr.New(apperr.Invalid, "file is required"))
		return
	}
	defer file.Close()

	id, err := h.api.UploadMedia(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, uploadResponse{Result: true, MediaID: id})
}
