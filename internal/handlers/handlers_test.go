package handlers_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/brdflow/internal/agents"
	"github.com/BerylCAtieno/brdflow/internal/handlers"
	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/poller"
	"github.com/BerylCAtieno/brdflow/internal/router"
	"github.com/BerylCAtieno/brdflow/internal/services"
	"github.com/BerylCAtieno/brdflow/internal/utils"
)

// backend fakes the task-automation API under /api/agents.
type backend struct {
	mu sync.Mutex

	fileCalls    map[string]int
	brdRequests  []models.CreateBRDRequest
	feedback     []map[string]any
	feedbackFail bool
	uploadFail   bool
	ticketReqs   []models.CreateTicketRequest
}

func (b *backend) calls(fileID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fileCalls[fileID]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (b *backend) routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/agents").Subrouter()

	api.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		fail := b.uploadFail
		b.mu.Unlock()
		if fail {
			writeJSON(w, map[string]string{"error": "File size exceeds 100MB"})
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, map[string]string{"error": "No file"})
			return
		}
		file.Close()
		writeJSON(w, map[string]string{"file_id": "f1"})
	}).Methods(http.MethodPost)

	api.HandleFunc("/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		b.mu.Lock()
		b.fileCalls[id]++
		n := b.fileCalls[id]
		b.mu.Unlock()

		switch {
		case id == "f2":
			writeJSON(w, map[string]any{"id": id, "status": "error", "error": "Unsupported file type"})
		case id == "f3" || n <= 2:
			writeJSON(w, map[string]any{"id": id, "status": "transcribing", "upload_time": "2024-05-31T16:08:37"})
		default:
			writeJSON(w, map[string]any{
				"id":     id,
				"status": "done",
				"transcription": map[string]any{
					"id":   "t1",
					"text": "We discussed login and reports.",
					"key_points": []map[string]any{
						{"text": "A", "embedding": []float64{1, 0}},
						{"text": "B", "embedding": []float64{0, 1}},
					},
				},
			})
		}
	}).Methods(http.MethodGet)

	api.HandleFunc("/brds", func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateBRDRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.brdRequests = append(b.brdRequests, req)
		b.mu.Unlock()
		writeJSON(w, map[string]string{"brd_id": "b1", "content": "c", "pdf_path": "p"})
	}).Methods(http.MethodPost)

	api.HandleFunc("/brds/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if id != "b1" {
			writeJSON(w, map[string]string{"error": "BRD not found"})
			return
		}
		writeJSON(w, map[string]any{
			"id":                  "b1",
			"selected_key_points": []string{"A"},
			"content":             "1. Login\n2. Reports",
		})
	}).Methods(http.MethodGet)

	api.HandleFunc("/brds/{id}/pdf", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] != "b1" {
			writeJSON(w, map[string]string{"error": "PDF not found"})
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 stub"))
	}).Methods(http.MethodGet)

	api.HandleFunc("/tickets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Ticket{
			{ID: "t1", BRDID: "b1", Title: "Login form", Type: models.TicketFeature, Status: "open"},
			{ID: "t2", BRDID: "b2", Title: "Other BRD ticket", Type: models.TicketBug, Status: "open"},
			{ID: "t3", BRDID: "b1", Title: "Report export", Type: models.TicketImprovement, Status: "open"},
		})
	}).Methods(http.MethodGet)

	api.HandleFunc("/tickets", func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateTicketRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.ticketReqs = append(b.ticketReqs, req)
		b.mu.Unlock()
		writeJSON(w, map[string]string{"ticket_id": "t4"})
	}).Methods(http.MethodPost)

	api.HandleFunc("/feedback", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.feedback = append(b.feedback, body)
		fail := b.feedbackFail
		b.mu.Unlock()
		if fail {
			writeJSON(w, map[string]string{"error": "Internal server error: db down"})
			return
		}
		writeJSON(w, map[string]string{"feedback_id": "fb1"})
	}).Methods(http.MethodPost)

	return r
}

// testMaxFileSize keeps oversized test bodies small enough for the server
// to drain after rejecting them.
const testMaxFileSize = 100 << 10

type stack struct {
	app     *httptest.Server
	backend *backend
	client  *http.Client
}

func setup(t *testing.T, opts ...handlers.Option) *stack {
	t.Helper()

	b := &backend{fileCalls: map[string]int{}}
	api := httptest.NewServer(b.routes())
	t.Cleanup(api.Close)

	logger := utils.NewLoggerTo(io.Discard, "debug")
	client := agents.NewClient(api.URL+"/api/agents", api.Client())
	watcher := poller.NewWatcher(client, logger, poller.WithInterval(10*time.Millisecond))
	svc := services.NewService(client, watcher, logger)

	app := httptest.NewServer(router.NewRouter(svc, logger, testMaxFileSize, opts...))
	t.Cleanup(app.Close)

	httpClient := app.Client()
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &stack{app: app, backend: b, client: httpClient}
}

func (s *stack) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := s.client.Get(s.app.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (s *stack) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := s.client.PostForm(s.app.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func multipartFile(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadPollSelectCreate(t *testing.T) {
	s := setup(t)

	body, contentType := multipartFile(t, "meeting.mp3", []byte("audio"))
	resp, err := s.client.Post(s.app.URL+"/upload", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/files/f1", resp.Header.Get("Location"))

	resp, page := s.get(t, "/files/f1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "transcribing")
	assert.Contains(t, page, `data-events="/files/f1/events"`)

	resp, stream := s.get(t, "/files/f1/events")
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Contains(t, stream, "event: status\ndata: {\"status\":\"transcribing\"}")
	assert.Contains(t, stream, "event: done\ndata: {\"status\":\"done\"}")
	assert.Equal(t, 3, s.backend.calls("f1"), "one page fetch, then one fetch per interval until done")

	_, page = s.get(t, "/files/f1")
	assert.Contains(t, page, "Key points")
	assert.Contains(t, page, "disabled>Create BRD")
	assert.NotContains(t, page, "data-events")

	_, page = s.get(t, "/files/f1?toggle=A")
	assert.Contains(t, page, `<input type="hidden" name="selected" value="A">`)
	assert.NotContains(t, page, "disabled>Create BRD")
	assert.Contains(t, page, "selected=A&amp;toggle=B")
	assert.Contains(t, page, "1 selected")

	resp, _ = s.postForm(t, "/files/f1/brds", url.Values{"selected": {"A"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/brds/b1", resp.Header.Get("Location"))

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	assert.Equal(t, []models.CreateBRDRequest{{FileID: "f1", SelectedKeyPoints: []string{"A"}}}, s.backend.brdRequests)
}

func TestToggleTwiceDeselects(t *testing.T) {
	s := setup(t)
	s.backend.fileCalls["f1"] = 2

	_, page := s.get(t, "/files/f1?selected=A&toggle=A")
	assert.NotContains(t, page, `name="selected"`)
	assert.Contains(t, page, "disabled>Create BRD")
}

func TestCreateBRDWithEmptySelection(t *testing.T) {
	s := setup(t)
	s.backend.fileCalls["f1"] = 2

	resp, page := s.postForm(t, "/files/f1/brds", url.Values{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, page, "Select at least one key point")
	assert.Empty(t, s.backend.brdRequests)
}

func TestFileEventsReportsProcessingError(t *testing.T) {
	s := setup(t)

	_, page := s.get(t, "/files/f2")
	assert.Contains(t, page, "Unsupported file type")
	assert.NotContains(t, page, "data-events")

	_, stream := s.get(t, "/files/f2/events")
	assert.Contains(t, stream, "event: failed\ndata: {\"error\":\"Unsupported file type\"}")
}

func TestFileEventsStopPollingWhenClientLeaves(t *testing.T) {
	s := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.app.URL+"/files/f3/events", nil)
	require.NoError(t, err)
	resp, err := s.client.Do(req)
	require.NoError(t, err)

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: status\n", line)

	cancel()
	resp.Body.Close()

	time.Sleep(100 * time.Millisecond)
	settled := s.backend.calls("f3")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, s.backend.calls("f3"), "no fetch may happen after the stream closes")
}

func TestFileEventsEndWhenStreamsAreShutDown(t *testing.T) {
	streams, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()
	s := setup(t, handlers.WithStreamContext(streams))

	resp, err := s.client.Get(s.app.URL + "/files/f3/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: status\n", line)

	stopStreams()
	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.NotContains(t, string(rest), "event: failed")

	page, _ := s.get(t, "/brds/b1")
	assert.Equal(t, http.StatusOK, page.StatusCode)
}

func TestSubmitFeedback(t *testing.T) {
	s := setup(t)

	resp, _ := s.postForm(t, "/brds/b1/feedback", url.Values{"rating": {"4.5"}, "comments": {"good"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/brds/b1", resp.Header.Get("Location"))

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	assert.Equal(t, []map[string]any{{"brd_id": "b1", "rating": 4.5, "comments": "good"}}, s.backend.feedback)
}

func TestSubmitFeedbackFailureKeepsInputs(t *testing.T) {
	s := setup(t)
	s.backend.feedbackFail = true

	resp, page := s.postForm(t, "/brds/b1/feedback", url.Values{"rating": {"4.5"}, "comments": {"good"}})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, page, "<dialog open")
	assert.Contains(t, page, "Internal server error: db down")
	assert.Contains(t, page, `value="4.5" checked`)
	assert.Contains(t, page, ">good</textarea>")
	assert.NotContains(t, page, "disabled>Submit")
	assert.Len(t, s.backend.feedback, 1)
}

func TestSubmitFeedbackWithoutRating(t *testing.T) {
	s := setup(t)

	resp, page := s.postForm(t, "/brds/b1/feedback", url.Values{"comments": {"kept"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, page, ">kept</textarea>")
	assert.Contains(t, page, "disabled>Submit")
	assert.Empty(t, s.backend.feedback)
}

func TestBRDPageScopesTickets(t *testing.T) {
	s := setup(t)

	resp, page := s.get(t, "/brds/b1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "1. Login\n2. Reports")
	assert.Contains(t, page, `href="/brds/b1/pdf" target="_blank"`)
	assert.Contains(t, page, "Login form")
	assert.Contains(t, page, "Report export")
	assert.NotContains(t, page, "Other BRD ticket")
	assert.Contains(t, page, "Create ticket")
	assert.NotContains(t, page, "<dialog open")

	_, page = s.get(t, "/brds/b1?feedback=open")
	assert.Contains(t, page, "<dialog open")
	assert.Contains(t, page, "disabled>Submit")
}

func TestBRDPageError(t *testing.T) {
	s := setup(t)

	resp, page := s.get(t, "/brds/missing")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, page, "BRD not found")
	assert.Contains(t, page, "Tickets")
}

func TestGlobalTickets(t *testing.T) {
	s := setup(t)

	resp, page := s.get(t, "/tickets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "Login form")
	assert.Contains(t, page, "Other BRD ticket")
	assert.Contains(t, page, "Report export")
	assert.NotContains(t, page, "Create ticket")
}

func TestCreateTicket(t *testing.T) {
	s := setup(t)

	resp, page := s.postForm(t, "/brds/b1/tickets", url.Values{"title": {" "}, "description": {"d"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, page, "Title and description are required")
	assert.Contains(t, page, "<dialog open")
	assert.Contains(t, page, ">d</textarea>")
	assert.Empty(t, s.backend.ticketReqs)

	resp, _ = s.postForm(t, "/brds/b1/tickets", url.Values{"title": {"Audit log"}, "description": {"Track changes"}, "type": {"bug"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/brds/b1", resp.Header.Get("Location"))

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	assert.Equal(t, []models.CreateTicketRequest{{BRDID: "b1", Title: "Audit log", Description: "Track changes", Type: models.TicketBug}}, s.backend.ticketReqs)
}

func TestBRDPDFProxy(t *testing.T) {
	s := setup(t)

	resp, body := s.get(t, "/brds/b1/pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 stub", body)

	resp, body = s.get(t, "/brds/b2/pdf")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "PDF not found", strings.TrimSpace(body))
}

func TestUploadTooLarge(t *testing.T) {
	s := setup(t)

	body, contentType := multipartFile(t, "huge.mp4", bytes.Repeat([]byte("x"), 2*testMaxFileSize))
	resp, err := s.client.Post(s.app.URL+"/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	page, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, string(page), "File size exceeds 0.1MB limit")
}

func TestUploadShowsBackendRejection(t *testing.T) {
	s := setup(t)
	s.backend.mu.Lock()
	s.backend.uploadFail = true
	s.backend.mu.Unlock()

	body, contentType := multipartFile(t, "meeting.mp4", bytes.Repeat([]byte("x"), 50<<10))
	resp, err := s.client.Post(s.app.URL+"/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	page, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(page), "File size exceeds 100MB")
	assert.Contains(t, string(page), `name="file"`)
}

func TestUploadWithoutFile(t *testing.T) {
	s := setup(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "x"))
	require.NoError(t, mw.Close())

	resp, err := s.client.Post(s.app.URL+"/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	page, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(page), "No file provided")
}

func TestHealthz(t *testing.T) {
	s := setup(t)

	resp, body := s.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
