package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/services"
	"github.com/BerylCAtieno/brdflow/internal/utils"
	"github.com/BerylCAtieno/brdflow/internal/viewstate"
)

type ratingOption struct {
	Value   string
	Checked bool
}

type brdPage struct {
	Title         string
	BRDID         string
	Error         string
	Notice        string
	BRD           *models.BRD
	ExportEnabled bool
	Export        *services.ExportResult
	ExportError   string
	Feedback      *viewstate.FeedbackForm
	Ratings       []ratingOption
	Tickets       ticketManager
}

// newBRDPage loads the BRD and its tickets. The two fail independently:
// a ticket error never hides the BRD and the other way round.
func (h *Handler) newBRDPage(r *http.Request, brdID string, feedback *viewstate.FeedbackForm, ticket *viewstate.TicketForm) (brdPage, int) {
	ctx := r.Context()
	page := brdPage{
		Title:         "BRD " + brdID,
		BRDID:         brdID,
		ExportEnabled: h.service.ExportEnabled(),
		Feedback:      feedback,
	}
	for _, choice := range models.RatingChoices() {
		page.Ratings = append(page.Ratings, ratingOption{Value: choice.String(), Checked: choice == feedback.Rating})
	}

	status := http.StatusOK
	brd, err := h.service.GetBRD(ctx, brdID)
	if err != nil {
		page.Error = utils.MessageOf(err)
		status = utils.StatusOf(err)
	} else {
		page.BRD = brd
	}

	if page.ExportEnabled && page.BRD != nil {
		page.Export, _ = h.service.LatestExport(ctx, brdID)
	}

	page.Tickets = h.newTicketManager(r, brdID, ticket)
	return page, status
}

// BRD renders a BRD with its feedback dialog and ticket manager. The
// dialogs open through ?feedback=open and ?ticket=open.
func (h *Handler) BRD(w http.ResponseWriter, r *http.Request) {
	brdID := mux.Vars(r)["id"]
	q := r.URL.Query()

	feedback := &viewstate.FeedbackForm{Open: q.Get("feedback") == "open"}
	ticket := viewstate.NewTicketForm()
	ticket.Open = q.Get("ticket") == "open"

	page, status := h.newBRDPage(r, brdID, feedback, &ticket)
	if q.Get("exported") != "" && page.Export != nil {
		page.Notice = "PDF exported to object storage"
	}
	h.render(w, status, "brd", page)
}

// BRDPDF proxies the backend PDF. It is opened in a new tab, so failures
// are answered as plain errors there and never reach the BRD page.
func (h *Handler) BRDPDF(w http.ResponseWriter, r *http.Request) {
	brdID := mux.Vars(r)["id"]

	body, err := h.service.OpenBRDPDF(r.Context(), brdID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "brd_"+brdID+".pdf"))
	if _, err := io.Copy(w, body); err != nil && r.Context().Err() == nil {
		h.logger.Warn("PDF stream interrupted", "brd_id", brdID, "error", err)
	}
}

func (h *Handler) BRDPDFText(w http.ResponseWriter, r *http.Request) {
	brdID := mux.Vars(r)["id"]

	text, err := h.service.BRDPDFText(r.Context(), brdID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text)
}

func (h *Handler) ExportBRD(w http.ResponseWriter, r *http.Request) {
	brdID := mux.Vars(r)["id"]

	if _, err := h.service.ExportBRD(r.Context(), brdID); err != nil {
		ticket := viewstate.NewTicketForm()
		page, _ := h.newBRDPage(r, brdID, &viewstate.FeedbackForm{}, &ticket)
		page.ExportError = utils.MessageOf(err)
		h.render(w, utils.StatusOf(err), "brd", page)
		return
	}

	redirect(w, r, "/brds/"+url.PathEscape(brdID)+"?exported=1")
}

// SubmitFeedback sends one feedback record. On failure the dialog stays
// open with the rating and comments the user entered.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	brdID := mux.Vars(r)["id"]

	if err := r.ParseForm(); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}

	form := &viewstate.FeedbackForm{Open: true, Comments: r.PostForm.Get("comments")}
	rating, err := models.ParseRating(r.PostForm.Get("rating"))
	if err != nil {
		h.renderFeedbackFailure(w, r, brdID, form, utils.NewUnprocessableError(err.Error()))
		return
	}
	form.Rating = rating

	if !form.CanSubmit() {
		h.renderFeedbackFailure(w, r, brdID, form, utils.NewUnprocessableError("Choose a rating"))
		return
	}

	if err := h.service.SubmitFeedback(r.Context(), brdID, form.Rating, form.Comments); err != nil {
		h.renderFeedbackFailure(w, r, brdID, form, err)
		return
	}

	redirect(w, r, "/brds/"+url.PathEscape(brdID))
}

func (h *Handler) renderFeedbackFailure(w http.ResponseWriter, r *http.Request, brdID string, form *viewstate.FeedbackForm, err error) {
	form.Failed(utils.MessageOf(err))
	ticket := viewstate.NewTicketForm()
	page, _ := h.newBRDPage(r, brdID, form, &ticket)
	h.render(w, utils.StatusOf(err), "brd", page)
}
