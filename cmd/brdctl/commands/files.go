package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/BerylCAtieno/brdflow/internal/models"
)

// UploadAction uploads a local file and optionally follows its processing.
func UploadAction(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	filename := filepath.Base(path)
	fileID, err := appCtx.Service.Upload(ctx, filename, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(appCtx.Out, "Uploaded %s as %s\n", filename, fileID)

	if !cmd.Bool("watch") {
		return nil
	}
	return watchFile(ctx, appCtx, fileID)
}

// FileShowAction prints a file's current status and key points.
func FileShowAction(ctx context.Context, cmd *cli.Command) error {
	fileID, err := requireArg(cmd, "file-id")
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	rec, err := appCtx.Service.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	renderFileDetail(appCtx.Out, rec)
	return nil
}

// WatchAction polls a file until it leaves the uploading and transcribing
// statuses, printing every status change.
func WatchAction(ctx context.Context, cmd *cli.Command) error {
	fileID, err := requireArg(cmd, "file-id")
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(cmd)
	if err != nil {
		return err
	}

	return watchFile(ctx, appCtx, fileID)
}

func watchFile(ctx context.Context, appCtx *AppContext, fileID string) error {
	var last models.FileStatus
	rec, err := appCtx.Service.WatchFile(ctx, fileID, false, func(rec *models.FileRecord) {
		if rec.Status != last {
			fmt.Fprintf(appCtx.Out, "status: %s\n", rec.Status)
			last = rec.Status
		}
	})
	if err != nil {
		return err
	}

	renderFileDetail(appCtx.Out, rec)
	return nil
}

func renderFileDetail(w io.Writer, rec *models.FileRecord) {
	fmt.Fprintf(w, "\nFile:      %s\n", rec.Identifier())
	fmt.Fprintf(w, "Path:      %s\n", rec.FilePath)
	fmt.Fprintf(w, "Status:    %s\n", rec.Status)
	fmt.Fprintf(w, "Uploaded:  %s\n", formatTime(rec.UploadTime))

	if rec.Error != "" {
		fmt.Fprintf(w, "Error:     %s\n", rec.Error)
	}

	if rec.Transcription == nil || len(rec.Transcription.KeyPoints) == 0 {
		return
	}
	fmt.Fprintf(w, "\nKey points:\n")
	for i, kp := range rec.Transcription.KeyPoints {
		fmt.Fprintf(w, "  %d. %s\n", i+1, kp.Text)
	}
}
