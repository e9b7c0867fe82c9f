package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/similarity"
	"github.com/BerylCAtieno/brdflow/internal/viewstate"
)

// BRDCreateAction creates a BRD from the key points given with --point.
func BRDCreateAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	selection := viewstate.NewSelection(cmd.StringSlice("point")...)
	brdID, err := appCtx.Service.CreateBRD(ctx, cmd.String("file"), selection)
	if err != nil {
		return err
	}

	fmt.Fprintf(appCtx.Out, "Created BRD %s\n", brdID)
	return nil
}

// BRDShowAction prints a BRD and its content.
func BRDShowAction(ctx context.Context, cmd *cli.Command) error {
	brdID, err := requireArg(cmd, "brd-id")
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	brd, err := appCtx.Service.GetBRD(ctx, brdID)
	if err != nil {
		return err
	}

	renderBRDDetail(appCtx.Out, brd)
	return nil
}

// BRDPDFAction downloads the BRD's PDF to --out.
func BRDPDFAction(ctx context.Context, cmd *cli.Command) (err error) {
	brdID, err := requireArg(cmd, "brd-id")
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "" {
		out = brdID + ".pdf"
	}

	pdf, err := appCtx.Service.OpenBRDPDF(ctx, brdID)
	if err != nil {
		return err
	}
	defer pdf.Close()

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to write %s: %w", out, cerr)
		}
	}()

	n, err := io.Copy(f, pdf)
	if err != nil {
		return fmt.Errorf("failed to download PDF: %w", err)
	}

	fmt.Fprintf(appCtx.Out, "Saved %d bytes to %s\n", n, out)
	return nil
}

// BRDSimilarAction lists BRDs the backend considers similar to --point.
// With --file the candidates are scored locally and cut at --threshold.
func BRDSimilarAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	fileID := cmd.String("file")
	matches, err := appCtx.Service.SimilarBRDs(ctx, fileID, cmd.StringSlice("point"), cmd.Float("threshold"))
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		fmt.Fprintln(appCtx.Out, "No similar BRDs found")
		return nil
	}

	renderMatchesTable(appCtx.Out, matches, fileID != "")
	return nil
}

func renderBRDDetail(w io.Writer, brd *models.BRD) {
	fmt.Fprintf(w, "\nBRD:            %s\n", brd.ID)
	fmt.Fprintf(w, "Transcription:  %s\n", brd.TranscriptionID)
	fmt.Fprintf(w, "Created:        %s\n", formatTime(brd.CreatedAt))
	if brd.PDFPath != "" {
		fmt.Fprintf(w, "PDF:            %s\n", brd.PDFPath)
	}

	fmt.Fprintf(w, "\nKey points:\n")
	for i, point := range brd.SelectedKeyPoints {
		fmt.Fprintf(w, "  %d. %s\n", i+1, point)
	}

	fmt.Fprintf(w, "\n%s\n", brd.Content)
}

func renderMatchesTable(w io.Writer, matches []similarity.Match, scored bool) {
	table := tablewriter.NewWriter(w)
	if scored {
		table.Header("BRD ID", "Score", "Key Points", "Created At")
	} else {
		table.Header("BRD ID", "Key Points", "Created At")
	}

	for _, m := range matches {
		points := strings.Join(m.BRD.SelectedKeyPoints, "; ")
		if scored {
			table.Append(m.BRD.ID, strconv.FormatFloat(m.Score, 'f', 3, 64), points, formatTime(m.BRD.CreatedAt))
		} else {
			table.Append(m.BRD.ID, points, formatTime(m.BRD.CreatedAt))
		}
	}

	table.Render()
}
