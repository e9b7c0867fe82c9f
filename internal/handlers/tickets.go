package handlers

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/utils"
	"github.com/BerylCAtieno/brdflow/internal/viewstate"
)

// ticketManager is the ticket list, scoped to one BRD when BRDID is set.
// Only the scoped manager offers ticket creation.
type ticketManager struct {
	BRDID   string
	Scoped  bool
	Form    *viewstate.TicketForm
	Types   []models.TicketType
	Tickets []models.Ticket
	Error   string
}

func (h *Handler) newTicketManager(r *http.Request, brdID string, form *viewstate.TicketForm) ticketManager {
	tm := ticketManager{
		BRDID:  brdID,
		Scoped: brdID != "",
		Form:   form,
		Types:  models.TicketTypes,
	}

	tickets, err := h.service.ListTickets(r.Context(), brdID)
	if err != nil {
		tm.Error = utils.MessageOf(err)
		return tm
	}
	tm.Tickets = tickets
	return tm
}

type ticketsPage struct {
	Title   string
	Tickets ticketManager
}

func (h *Handler) Tickets(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "tickets", ticketsPage{
		Title:   "Tickets",
		Tickets: h.newTicketManager(r, "", nil),
	})
}

// CreateTicket adds a ticket to a BRD and returns to it, which reloads the
// ticket list. On failure the dialog stays open with the inputs.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	brdID := mux.Vars(r)["id"]

	if err := r.ParseForm(); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}

	form := viewstate.NewTicketForm()
	form.Open = true
	form.Title = r.PostForm.Get("title")
	form.Description = r.PostForm.Get("description")

	ticketType, err := models.ParseTicketType(r.PostForm.Get("type"))
	if err != nil {
		h.renderTicketFailure(w, r, brdID, &form, utils.NewUnprocessableError("Type must be feature, bug or improvement"))
		return
	}
	form.Type = ticketType

	if _, err := h.service.CreateTicket(r.Context(), brdID, &form); err != nil {
		h.renderTicketFailure(w, r, brdID, &form, err)
		return
	}

	redirect(w, r, "/brds/"+url.PathEscape(brdID))
}

func (h *Handler) renderTicketFailure(w http.ResponseWriter, r *http.Request, brdID string, form *viewstate.TicketForm, err error) {
	form.Failed(utils.MessageOf(err))
	page, _ := h.newBRDPage(r, brdID, &viewstate.FeedbackForm{}, form)
	h.render(w, utils.StatusOf(err), "brd", page)
}
