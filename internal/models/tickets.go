package models

import "fmt"

type TicketType string

const (
	TicketFeature     TicketType = "feature"
	TicketBug         TicketType = "bug"
	TicketImprovement TicketType = "improvement"
)

// TicketTypes lists the ticket types in display order.
var TicketTypes = []TicketType{TicketFeature, TicketBug, TicketImprovement}

func ParseTicketType(s string) (TicketType, error) {
	if s == "" {
		return TicketFeature, nil
	}
	for _, t := range TicketTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown ticket type %q", s)
}

type Ticket struct {
	ID          string     `json:"id"`
	BRDID       string     `json:"brd_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        TicketType `json:"type"`
	Status      string     `json:"status"`
	CreatedAt   Timestamp  `json:"created_at"`
}

type CreateTicketRequest struct {
	BRDID       string     `json:"brd_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        TicketType `json:"type"`
}

// CreateTicketResponse accepts either the bare {"ticket_id"} acknowledgement
// or a full ticket record.
type CreateTicketResponse struct {
	TicketID string `json:"ticket_id,omitempty"`
	Ticket
}

func (r *CreateTicketResponse) Identifier() string {
	if r.TicketID != "" {
		return r.TicketID
	}
	return r.ID
}
