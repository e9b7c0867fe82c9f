package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BerylCAtieno/brdflow/internal/agents"
	"github.com/BerylCAtieno/brdflow/internal/extractor"
	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/poller"
	"github.com/BerylCAtieno/brdflow/internal/repository"
	"github.com/BerylCAtieno/brdflow/internal/similarity"
	"github.com/BerylCAtieno/brdflow/internal/storage"
	"github.com/BerylCAtieno/brdflow/internal/utils"
	"github.com/BerylCAtieno/brdflow/internal/viewstate"
)

const (
	recentUploadsLimit = 10
	maxPDFSize         = 50 << 20
)

// APIClient is the backend surface the workflow drives.
type APIClient interface {
	UploadFile(ctx context.Context, filename string, r io.Reader) (*models.UploadResponse, error)
	GetFile(ctx context.Context, fileID string) (*models.FileRecord, error)
	CreateBRD(ctx context.Context, fileID string, selected []string) (*models.CreateBRDResponse, error)
	GetBRD(ctx context.Context, brdID string) (*models.BRD, error)
	GetBRDPDF(ctx context.Context, brdID string) (io.ReadCloser, error)
	GetSimilarBRDs(ctx context.Context, selected []string) ([]models.BRD, error)
	CreateTicket(ctx context.Context, brdID, title, description string, ticketType models.TicketType) (*models.CreateTicketResponse, error)
	GetTickets(ctx context.Context) ([]models.Ticket, error)
	SubmitFeedback(ctx context.Context, brdID string, rating models.Rating, comments string) (*models.FeedbackResponse, error)
}

type ExportResult struct {
	BRDID   string
	PDFKey  string
	TextKey string
	URL     string
	Pages   int
}

type WorkflowService interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
	GetFile(ctx context.Context, fileID string) (*models.FileRecord, error)
	WatchFile(ctx context.Context, fileID string, resume bool, onUpdate func(*models.FileRecord)) (*models.FileRecord, error)
	CreateBRD(ctx context.Context, fileID string, selection *viewstate.Selection) (string, error)
	GetBRD(ctx context.Context, brdID string) (*models.BRD, error)
	OpenBRDPDF(ctx context.Context, brdID string) (io.ReadCloser, error)
	BRDPDFText(ctx context.Context, brdID string) (string, error)
	ExportEnabled() bool
	ExportBRD(ctx context.Context, brdID string) (*ExportResult, error)
	LatestExport(ctx context.Context, brdID string) (*ExportResult, error)
	SimilarBRDs(ctx context.Context, fileID string, selected []string, threshold float64) ([]similarity.Match, error)
	ListTickets(ctx context.Context, brdID string) ([]models.Ticket, error)
	CreateTicket(ctx context.Context, brdID string, form *viewstate.TicketForm) (string, error)
	SubmitFeedback(ctx context.Context, brdID string, rating models.Rating, comments string) error
	RecentUploads(ctx context.Context) ([]models.Upload, error)
	BRDsForFile(ctx context.Context, fileID string) ([]models.BRDRecord, error)
}

type workflowService struct {
	client    APIClient
	watcher   *poller.Watcher
	history   repository.History
	storage   storage.Storage
	exportTTL time.Duration
	logger    *utils.Logger
	now       func() time.Time
}

type Option func(*workflowService)

// WithHistory records uploads, BRDs and exports locally.
func WithHistory(h repository.History) Option {
	return func(s *workflowService) { s.history = h }
}

// WithStorage enables BRD export. Presigned links live for ttl.
func WithStorage(st storage.Storage, ttl time.Duration) Option {
	return func(s *workflowService) {
		s.storage = st
		s.exportTTL = ttl
	}
}

func NewService(client APIClient, watcher *poller.Watcher, logger *utils.Logger, opts ...Option) WorkflowService {
	s := &workflowService{
		client:    client,
		watcher:   watcher,
		exportTTL: time.Hour,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// countingReader tracks how many bytes were streamed to the backend.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *workflowService) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", utils.NewBadRequestError("No file provided")
	}

	body := &countingReader{r: r}
	resp, err := s.client.UploadFile(ctx, filename, body)
	size := body.n
	if err != nil {
		s.logger.Error("Failed to upload file", "error", err, "filename", filename)
		return "", backendError("Upload failed", err)
	}

	s.logger.Info("File uploaded", "file_id", resp.FileID, "filename", filename, "size", size)

	if s.history != nil {
		upload := &models.Upload{
			FileID:     resp.FileID,
			Filename:   filename,
			SizeBytes:  size,
			UploadedAt: s.now(),
		}
		if err := s.history.RecordUpload(ctx, upload); err != nil {
			s.logger.Warn("Failed to record upload", "error", err, "file_id", resp.FileID)
		}
	}

	return resp.FileID, nil
}

func (s *workflowService) GetFile(ctx context.Context, fileID string) (*models.FileRecord, error) {
	rec, err := s.client.GetFile(ctx, fileID)
	if err != nil {
		s.logger.Error("Failed to get file", "error", err, "file_id", fileID)
		return nil, backendError("Failed to load file", err)
	}
	return rec, nil
}

// WatchFile follows the file until it leaves the pending statuses. With
// resume set the first fetch waits one poll interval.
func (s *workflowService) WatchFile(ctx context.Context, fileID string, resume bool, onUpdate func(*models.FileRecord)) (*models.FileRecord, error) {
	watch := s.watcher.Watch
	if resume {
		watch = s.watcher.Resume
	}

	rec, err := watch(ctx, fileID, onUpdate)
	if err == nil || poller.IsCancelled(err) {
		return rec, err
	}

	var procErr *poller.ProcessingError
	if errors.As(err, &procErr) {
		return rec, utils.NewUnprocessableError(procErr.Error())
	}
	return rec, backendError("Failed to load file", err)
}

func (s *workflowService) CreateBRD(ctx context.Context, fileID string, selection *viewstate.Selection) (string, error) {
	if !selection.CanCreateBRD() {
		return "", utils.NewUnprocessableError("Select at least one key point")
	}

	selected := selection.Items()
	resp, err := s.client.CreateBRD(ctx, fileID, selected)
	if err != nil {
		s.logger.Error("Failed to create BRD", "error", err, "file_id", fileID, "key_points", len(selected))
		return "", backendError("Failed to create BRD", err)
	}

	s.logger.Info("BRD created", "brd_id", resp.BRDID, "file_id", fileID, "key_points", len(selected))

	if s.history != nil {
		rec := &models.BRDRecord{
			BRDID:         resp.BRDID,
			FileID:        fileID,
			KeyPointCount: len(selected),
			CreatedAt:     s.now(),
		}
		if err := s.history.RecordBRD(ctx, rec); err != nil {
			s.logger.Warn("Failed to record BRD", "error", err, "brd_id", resp.BRDID)
		}
	}

	return resp.BRDID, nil
}

func (s *workflowService) GetBRD(ctx context.Context, brdID string) (*models.BRD, error) {
	brd, err := s.client.GetBRD(ctx, brdID)
	if err != nil {
		s.logger.Error("Failed to get BRD", "error", err, "brd_id", brdID)
		return nil, backendError("Failed to load BRD", err)
	}
	return brd, nil
}

func (s *workflowService) OpenBRDPDF(ctx context.Context, brdID string) (io.ReadCloser, error) {
	body, err := s.client.GetBRDPDF(ctx, brdID)
	if err != nil {
		s.logger.Warn("Failed to open BRD PDF", "error", err, "brd_id", brdID)
		return nil, pdfError(err)
	}
	return body, nil
}

func (s *workflowService) readPDF(ctx context.Context, brdID string) ([]byte, error) {
	body, err := s.OpenBRDPDF(ctx, brdID)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxPDFSize+1))
	if err != nil {
		return nil, backendError("Failed to read PDF", err)
	}
	if len(data) > maxPDFSize {
		return nil, utils.NewBadGatewayError("PDF is too large", nil)
	}
	return data, nil
}

func (s *workflowService) BRDPDFText(ctx context.Context, brdID string) (string, error) {
	data, err := s.readPDF(ctx, brdID)
	if err != nil {
		return "", err
	}

	text, err := extractor.ExtractPDF(data)
	if err != nil {
		s.logger.Error("Failed to extract PDF text", "error", err, "brd_id", brdID)
		return "", utils.NewBadGatewayError("Failed to extract text from PDF", err)
	}
	return text, nil
}

func (s *workflowService) ExportEnabled() bool {
	return s.storage != nil
}

// ExportBRD copies the BRD's PDF and its extracted text to object storage
// and returns a presigned link to the PDF.
func (s *workflowService) ExportBRD(ctx context.Context, brdID string) (*ExportResult, error) {
	if s.storage == nil {
		return nil, utils.NewNotFoundError("PDF export is not configured")
	}

	data, err := s.readPDF(ctx, brdID)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{BRDID: brdID, PDFKey: storage.ExportKey(brdID, "pdf")}

	if err := s.storage.Upload(ctx, result.PDFKey, data, "application/pdf"); err != nil {
		s.logger.Error("Failed to upload BRD PDF", "error", err, "key", result.PDFKey)
		return nil, utils.NewInternalError("Failed to store PDF")
	}

	// A PDF without a text layer is still exported.
	if doc, err := extractor.Parse(data); err != nil {
		s.logger.Warn("Skipping text export", "error", err, "brd_id", brdID)
	} else {
		result.Pages = len(doc.Pages)
		result.TextKey = storage.ExportKey(brdID, "txt")
		if err := s.storage.Upload(ctx, result.TextKey, []byte(doc.Text()), "text/plain; charset=utf-8"); err != nil {
			s.logger.Warn("Failed to upload BRD text", "error", err, "key", result.TextKey)
			result.TextKey = ""
		}
	}

	if s.history != nil {
		export := &models.Export{BRDID: brdID, ObjectKey: result.PDFKey, ExportedAt: s.now()}
		if err := s.history.RecordExport(ctx, export); err != nil {
			s.logger.Error("Failed to record export", "error", err, "brd_id", brdID)
			_ = s.storage.Delete(ctx, result.PDFKey)
			if result.TextKey != "" {
				_ = s.storage.Delete(ctx, result.TextKey)
			}
			return nil, utils.NewInternalError("Failed to save export")
		}
	}

	result.URL, err = s.storage.PresignedURL(ctx, result.PDFKey, s.exportTTL)
	if err != nil {
		s.logger.Error("Failed to presign export", "error", err, "key", result.PDFKey)
		return nil, utils.NewInternalError("Failed to create download link")
	}

	s.logger.Info("BRD exported", "brd_id", brdID, "key", result.PDFKey, "pages", result.Pages)
	return result, nil
}

// LatestExport returns a fresh link to the newest export of brdID, or nil
// when it was never exported or export is disabled.
func (s *workflowService) LatestExport(ctx context.Context, brdID string) (*ExportResult, error) {
	if s.history == nil || s.storage == nil {
		return nil, nil
	}

	export, err := s.history.LatestExport(ctx, brdID)
	if err != nil {
		s.logger.Error("Failed to load export", "error", err, "brd_id", brdID)
		return nil, utils.NewInternalError("Failed to load export history")
	}
	if export == nil {
		return nil, nil
	}

	url, err := s.storage.PresignedURL(ctx, export.ObjectKey, s.exportTTL)
	if err != nil {
		s.logger.Warn("Failed to presign earlier export", "error", err, "key", export.ObjectKey)
		return nil, nil
	}
	return &ExportResult{BRDID: brdID, PDFKey: export.ObjectKey, URL: url}, nil
}

// SimilarBRDs asks the backend for BRDs similar to the selected key points.
// When fileID is set the key point embeddings from its transcription are
// used to score and filter the candidates; otherwise every candidate is
// returned with a zero score in backend order.
func (s *workflowService) SimilarBRDs(ctx context.Context, fileID string, selected []string, threshold float64) ([]similarity.Match, error) {
	if len(selected) == 0 {
		return nil, utils.NewUnprocessableError("Select at least one key point")
	}

	brds, err := s.client.GetSimilarBRDs(ctx, selected)
	if err != nil {
		s.logger.Error("Failed to get similar BRDs", "error", err)
		return nil, backendError("Failed to find similar BRDs", err)
	}

	if fileID == "" {
		matches := make([]similarity.Match, len(brds))
		for i, brd := range brds {
			matches[i] = similarity.Match{BRD: brd}
		}
		return matches, nil
	}

	rec, err := s.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if rec.Transcription == nil {
		return nil, utils.NewUnprocessableError("File has no transcription yet")
	}

	query := rec.Transcription.Embeddings(selected)
	if len(query) == 0 {
		return nil, utils.NewUnprocessableError("Selected key points have no embeddings")
	}

	matches, err := similarity.Rank(query, brds, threshold)
	if err != nil {
		return nil, utils.NewUnprocessableError(fmt.Sprintf("Failed to rank BRDs: %v", err))
	}
	return matches, nil
}

// ListTickets fetches every ticket and keeps those of brdID. An empty brdID
// keeps all of them.
func (s *workflowService) ListTickets(ctx context.Context, brdID string) ([]models.Ticket, error) {
	tickets, err := s.client.GetTickets(ctx)
	if err != nil {
		s.logger.Error("Failed to list tickets", "error", err, "brd_id", brdID)
		return nil, backendError("Failed to load tickets", err)
	}
	return viewstate.FilterTickets(tickets, brdID), nil
}

func (s *workflowService) CreateTicket(ctx context.Context, brdID string, form *viewstate.TicketForm) (string, error) {
	if !form.CanSubmit() {
		return "", utils.NewUnprocessableError("Title and description are required")
	}

	resp, err := s.client.CreateTicket(ctx, brdID, strings.TrimSpace(form.Title), strings.TrimSpace(form.Description), form.Type)
	if err != nil {
		s.logger.Error("Failed to create ticket", "error", err, "brd_id", brdID)
		return "", backendError("Failed to create ticket", err)
	}

	s.logger.Info("Ticket created", "ticket_id", resp.Identifier(), "brd_id", brdID, "type", form.Type)
	return resp.Identifier(), nil
}

func (s *workflowService) SubmitFeedback(ctx context.Context, brdID string, rating models.Rating, comments string) error {
	if !rating.Valid() {
		return utils.NewUnprocessableError("Choose a rating between 0.5 and 5")
	}

	resp, err := s.client.SubmitFeedback(ctx, brdID, rating, comments)
	if err != nil {
		s.logger.Error("Failed to submit feedback", "error", err, "brd_id", brdID)
		return backendError("Failed to submit feedback", err)
	}

	s.logger.Info("Feedback submitted", "feedback_id", resp.FeedbackID, "brd_id", brdID, "rating", rating)
	return nil
}

func (s *workflowService) RecentUploads(ctx context.Context) ([]models.Upload, error) {
	if s.history == nil {
		return nil, nil
	}
	uploads, err := s.history.RecentUploads(ctx, recentUploadsLimit)
	if err != nil {
		s.logger.Error("Failed to load recent uploads", "error", err)
		return nil, utils.NewInternalError("Failed to load upload history")
	}
	return uploads, nil
}

func (s *workflowService) BRDsForFile(ctx context.Context, fileID string) ([]models.BRDRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	brds, err := s.history.BRDsForFile(ctx, fileID)
	if err != nil {
		s.logger.Error("Failed to load BRD history", "error", err, "file_id", fileID)
		return nil, utils.NewInternalError("Failed to load BRD history")
	}
	return brds, nil
}

// backendError turns a client error into an AppError whose message is what
// the user sees. Backend messages are shown as they are; transport failures
// get a generic message. Cancellation passes through untouched.
func backendError(fallback string, err error) error {
	if poller.IsCancelled(err) {
		return err
	}

	var apiErr *agents.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return &utils.AppError{StatusCode: http.StatusNotFound, Message: apiErr.Message, Err: err}
		}
		return utils.NewBadGatewayError(apiErr.Message, err)
	}
	return utils.NewBadGatewayError(fallback+": backend unreachable", err)
}

func pdfError(err error) error {
	if poller.IsCancelled(err) {
		return err
	}
	var apiErr *agents.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || strings.Contains(strings.ToLower(apiErr.Message), "not found")) {
		return utils.NewNotFoundError("PDF not found")
	}
	return backendError("Failed to load PDF", err)
}
