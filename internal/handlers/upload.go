package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/utils"
)

type homePage struct {
	Title       string
	Error       string
	Accept      string
	MaxFileSize int64
	Uploads     []models.Upload
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderHome(w, r, http.StatusOK, "")
}

func (h *Handler) renderHome(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	// History is best effort; the service already logged any failure.
	uploads, _ := h.service.RecentUploads(r.Context())

	h.render(w, status, "home", homePage{
		Title:       "Upload",
		Error:       errMsg,
		Accept:      acceptedExtensions,
		MaxFileSize: h.maxFileSize,
		Uploads:     uploads,
	})
}

// Upload streams the "file" part of a multipart form to the backend
// without buffering it, then sends the browser to the status page.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	tooLarge := "File size exceeds " + formatMegabytes(h.maxFileSize) + " limit"

	// Large uploads outlive the server's default timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	if r.ContentLength > h.maxFileSize {
		h.renderHome(w, r, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	mr, err := r.MultipartReader()
	if err != nil {
		h.renderHome(w, r, http.StatusBadRequest, "Invalid form data")
		return
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.renderHome(w, r, http.StatusRequestEntityTooLarge, tooLarge)
				return
			}
			h.renderHome(w, r, http.StatusBadRequest, "No file provided")
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		filename := part.FileName()
		if strings.TrimSpace(filename) == "" {
			h.renderHome(w, r, http.StatusBadRequest, "No file provided")
			return
		}

		h.logger.Info("File upload attempt", "filename", filename, "content_type", part.Header.Get("Content-Type"))

		fileID, err := h.service.Upload(r.Context(), filename, part)
		part.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.renderHome(w, r, http.StatusRequestEntityTooLarge, tooLarge)
				return
			}
			h.renderHome(w, r, utils.StatusOf(err), utils.MessageOf(err))
			return
		}

		redirect(w, r, "/files/"+url.PathEscape(fileID))
		return
	}
}
