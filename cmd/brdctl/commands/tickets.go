package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/viewstate"
)

// TicketListAction lists every ticket, or only those of --brd.
func TicketListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	tickets, err := appCtx.Service.ListTickets(ctx, cmd.String("brd"))
	if err != nil {
		return err
	}

	if len(tickets) == 0 {
		fmt.Fprintln(appCtx.Out, "No tickets found")
		return nil
	}

	renderTicketsTable(appCtx.Out, tickets)
	return nil
}

// TicketCreateAction creates a ticket for --brd.
func TicketCreateAction(ctx context.Context, cmd *cli.Command) error {
	ticketType, err := models.ParseTicketType(cmd.String("type"))
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	form := &viewstate.TicketForm{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Type:        ticketType,
	}
	ticketID, err := appCtx.Service.CreateTicket(ctx, cmd.String("brd"), form)
	if err != nil {
		return err
	}

	fmt.Fprintf(appCtx.Out, "Created ticket %s\n", ticketID)
	return nil
}

// FeedbackAction rates a BRD.
func FeedbackAction(ctx context.Context, cmd *cli.Command) error {
	rating, err := models.ParseRating(cmd.String("rating"))
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	brdID := cmd.String("brd")
	if err := appCtx.Service.SubmitFeedback(ctx, brdID, rating, cmd.String("comments")); err != nil {
		return err
	}

	fmt.Fprintf(appCtx.Out, "Feedback submitted for BRD %s\n", brdID)
	return nil
}

func renderTicketsTable(w io.Writer, tickets []models.Ticket) {
	table := tablewriter.NewWriter(w)
	table.Header("Ticket ID", "BRD ID", "Type", "Status", "Title", "Created At")

	for _, t := range tickets {
		table.Append(
			t.ID,
			t.BRDID,
			string(t.Type),
			t.Status,
			t.Title,
			formatTime(t.CreatedAt),
		)
	}

	table.Render()
}
