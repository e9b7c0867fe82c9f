// Package agents is the HTTP client for the task-automation backend
// mounted under /api/agents.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/BerylCAtieno/brdflow/internal/models"
)

const DefaultBaseURL = "http://localhost:8000/api/agents"

// APIError is returned when the backend rejects a request, either with a
// non-2xx status or with an "error" field in an otherwise successful body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode >= 300 {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the backend at baseURL. A nil httpClient
// uses http.DefaultClient. No timeout is applied beyond what the caller's
// context carries.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

var errUploadDone = errors.New("upload request finished")

// UploadFile streams r to the backend as the multipart field "file". It
// returns only once it has stopped reading r, even when the backend answers
// before consuming the whole body.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (*models.UploadResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	finish := func() {
		pr.CloseWithError(errUploadDone)
		<-done
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("upload"), pr)
	if err != nil {
		finish()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp models.UploadResponse
	err = c.do(req, &resp)
	finish()
	if err != nil {
		return nil, err
	}
	if resp.FileID == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "upload response carried no file id"}
	}
	return &resp, nil
}

func (c *Client) GetFile(ctx context.Context, fileID string) (*models.FileRecord, error) {
	var rec models.FileRecord
	if err := c.getJSON(ctx, c.endpoint("files", fileID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) CreateBRD(ctx context.Context, fileID string, selected []string) (*models.CreateBRDResponse, error) {
	body := models.CreateBRDRequest{FileID: fileID, SelectedKeyPoints: selected}

	var resp models.CreateBRDResponse
	if err := c.postJSON(ctx, c.endpoint("brds"), body, &resp); err != nil {
		return nil, err
	}
	if resp.BRDID == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "create BRD response carried no BRD id"}
	}
	return &resp, nil
}

func (c *Client) GetBRD(ctx context.Context, brdID string) (*models.BRD, error) {
	var brd models.BRD
	if err := c.getJSON(ctx, c.endpoint("brds", brdID), &brd); err != nil {
		return nil, err
	}
	return &brd, nil
}

// BRDPDFURL is the backend location of the rendered PDF for brdID.
func (c *Client) BRDPDFURL(brdID string) string {
	return c.endpoint("brds", brdID, "pdf")
}

// GetBRDPDF opens the PDF stream for brdID. The caller closes the reader.
// The backend answers a missing PDF with a JSON error body, which is
// reported as an APIError rather than handed back as a document.
func (c *Client) GetBRDPDF(ctx context.Context, brdID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BRDPDFURL(brdID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, responseError(resp.StatusCode, body)
	}

	return resp.Body, nil
}

func (c *Client) GetSimilarBRDs(ctx context.Context, selected []string) ([]models.BRD, error) {
	body := models.SimilarBRDsRequest{SelectedKeyPoints: selected}

	var brds []models.BRD
	if err := c.postJSON(ctx, c.endpoint("similar_brds"), body, &brds); err != nil {
		return nil, err
	}
	return brds, nil
}

func (c *Client) CreateTicket(ctx context.Context, brdID, title, description string, ticketType models.TicketType) (*models.CreateTicketResponse, error) {
	body := models.CreateTicketRequest{
		BRDID:       brdID,
		Title:       title,
		Description: description,
		Type:        ticketType,
	}

	var resp models.CreateTicketResponse
	if err := c.postJSON(ctx, c.endpoint("tickets"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTickets returns every ticket the backend knows about.
func (c *Client) GetTickets(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := c.getJSON(ctx, c.endpoint("tickets"), &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, brdID string, rating models.Rating, comments string) (*models.FeedbackResponse, error) {
	body := models.FeedbackRequest{BRDID: brdID, Rating: rating, Comments: comments}

	var resp models.FeedbackResponse
	if err := c.postJSON(ctx, c.endpoint("feedback"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp.StatusCode, body)
	}

	if msg := embeddedError(body); msg != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// embeddedError extracts the message of an {"error": "..."} envelope. Only
// an object whose sole key is "error" counts, so a file record that reports
// a processing error is still decoded as a record.
func embeddedError(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil || len(envelope) != 1 {
		return ""
	}
	raw, ok := envelope["error"]
	if !ok {
		return ""
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ""
	}
	return msg
}

func responseError(status int, body []byte) error {
	msg := embeddedError(body)
	if msg == "" {
		var detail struct {
			Detail any `json:"detail"`
		}
		if json.Unmarshal(body, &detail) == nil && detail.Detail != nil {
			msg = fmt.Sprint(detail.Detail)
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
