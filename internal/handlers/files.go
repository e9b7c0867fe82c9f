package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/poller"
	"github.com/BerylCAtieno/brdflow/internal/utils"
	"github.com/BerylCAtieno/brdflow/internal/viewstate"
)

type keyPointView struct {
	Text      string
	Selected  bool
	ToggleURL template.URL
}

type filePage struct {
	Title         string
	FileID        string
	Error         string
	File          *models.FileRecord
	Pending       bool
	Transcription *models.Transcription
	KeyPoints     []keyPointView
	Selected      []string
	CanCreateBRD  bool
	BRDs          []models.BRDRecord
}

func (h *Handler) newFilePage(r *http.Request, fileID string, rec *models.FileRecord, sel *viewstate.Selection) filePage {
	page := filePage{
		Title:        "File " + fileID,
		FileID:       fileID,
		File:         rec,
		Selected:     sel.Items(),
		CanCreateBRD: sel.CanCreateBRD(),
	}
	page.BRDs, _ = h.service.BRDsForFile(r.Context(), fileID)

	if rec == nil {
		return page
	}
	if rec.Failed() {
		page.Error = rec.Error
		if page.Error == "" {
			page.Error = "Processing failed"
		}
		return page
	}
	page.Pending = rec.Status.Pending()

	if rec.Status == models.StatusDone && rec.Transcription != nil {
		page.Transcription = rec.Transcription
		base := "/files/" + url.PathEscape(fileID) + "?"
		for _, kp := range rec.Transcription.KeyPoints {
			page.KeyPoints = append(page.KeyPoints, keyPointView{
				Text:      kp.Text,
				Selected:  sel.Contains(kp.Text),
				ToggleURL: template.URL(base + sel.ToggleQuery(kp.Text)),
			})
		}
	}
	return page
}

// File renders the status view. The key point selection travels in the
// query string, so navigating away discards it.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]
	sel := viewstate.SelectionFromQuery(r.URL.Query())

	rec, err := h.service.GetFile(r.Context(), fileID)
	if err != nil {
		page := h.newFilePage(r, fileID, nil, sel)
		page.Error = utils.MessageOf(err)
		h.render(w, utils.StatusOf(err), "file", page)
		return
	}

	h.render(w, http.StatusOK, "file", h.newFilePage(r, fileID, rec, sel))
}

type statusEvent struct {
	Status models.FileStatus `json:"status,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// FileEvents streams status updates for a file as server-sent events until
// it finishes processing. Polling stops as soon as the client disconnects.
func (h *Handler) FileEvents(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]
	rc := http.NewResponseController(w)

	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	send := func(event string, payload statusEvent) {
		data, _ := json.Marshal(payload)
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return
		}
		_ = rc.Flush()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.streams, cancel)
	defer stop()

	rec, err := h.service.WatchFile(ctx, fileID, true, func(rec *models.FileRecord) {
		send("status", statusEvent{Status: rec.Status, Error: rec.Error})
	})
	switch {
	case err == nil:
		send("done", statusEvent{Status: rec.Status})
	case poller.IsCancelled(err) && h.streams.Err() != nil:
		h.logger.Debug("Status stream closed for shutdown", "file_id", fileID)
	case poller.IsCancelled(err):
		h.logger.Debug("Status stream closed by client", "file_id", fileID)
	default:
		send("failed", statusEvent{Error: utils.MessageOf(err)})
	}
}

// CreateBRD composes a BRD from the posted selection and opens it.
func (h *Handler) CreateBRD(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]

	if err := r.ParseForm(); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}
	sel := viewstate.SelectionFromQuery(r.PostForm)

	brdID, err := h.service.CreateBRD(r.Context(), fileID, sel)
	if err != nil {
		rec, _ := h.service.GetFile(r.Context(), fileID)
		page := h.newFilePage(r, fileID, rec, sel)
		page.Error = utils.MessageOf(err)
		h.render(w, utils.StatusOf(err), "file", page)
		return
	}

	redirect(w, r, "/brds/"+url.PathEscape(brdID))
}
