package viewstate

import (
	"strings"

	"github.com/BerylCAtieno/brdflow/internal/models"
)

// FeedbackForm is the state of the BRD feedback dialog.
type FeedbackForm struct {
	Open       bool
	Rating     models.Rating
	Comments   string
	Submitting bool
	Error      string
}

// CanSubmit is false until a rating is chosen and while a submission is in flight.
func (f *FeedbackForm) CanSubmit() bool {
	return f.Rating != 0 && !f.Submitting
}

// Succeeded closes the dialog and clears what the user entered.
func (f *FeedbackForm) Succeeded() {
	*f = FeedbackForm{}
}

// Failed keeps the dialog open with its inputs so the user can resubmit.
func (f *FeedbackForm) Failed(msg string) {
	f.Open = true
	f.Submitting = false
	f.Error = msg
}

// TicketForm is the state of the create-ticket dialog.
type TicketForm struct {
	Open        bool
	Title       string
	Description string
	Type        models.TicketType
	Error       string
}

func NewTicketForm() TicketForm {
	return TicketForm{Type: models.TicketFeature}
}

// CanSubmit requires a title and a description.
func (f *TicketForm) CanSubmit() bool {
	return strings.TrimSpace(f.Title) != "" && strings.TrimSpace(f.Description) != ""
}

func (f *TicketForm) Succeeded() {
	*f = NewTicketForm()
}

func (f *TicketForm) Failed(msg string) {
	f.Open = true
	f.Error = msg
}

// FilterTickets returns the tickets belonging to brdID, preserving order.
// An empty brdID selects every ticket.
func FilterTickets(tickets []models.Ticket, brdID string) []models.Ticket {
	if brdID == "" {
		return tickets
	}
	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.BRDID == brdID {
			out = append(out, t)
		}
	}
	return out
}
