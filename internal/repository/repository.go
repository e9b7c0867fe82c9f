package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/jmoiron/sqlx"
)

// History records what this client did against the backend so the home
// page can list recent work. The backend stays the source of truth.
type History interface {
	RecordUpload(ctx context.Context, upload *models.Upload) error
	RecordBRD(ctx context.Context, brd *models.BRDRecord) error
	RecordExport(ctx context.Context, export *models.Export) error
	RecentUploads(ctx context.Context, limit int) ([]models.Upload, error)
	BRDsForFile(ctx context.Context, fileID string) ([]models.BRDRecord, error)
	LatestExport(ctx context.Context, brdID string) (*models.Export, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) History {
	return &repository{db: db}
}

type uploadRow struct {
	FileID     string `db:"file_id"`
	Filename   string `db:"filename"`
	SizeBytes  int64  `db:"size_bytes"`
	UploadedAt string `db:"uploaded_at"`
}

type brdRow struct {
	BRDID         string `db:"brd_id"`
	FileID        string `db:"file_id"`
	KeyPointCount int    `db:"key_point_count"`
	CreatedAt     string `db:"created_at"`
}

type exportRow struct {
	BRDID      string `db:"brd_id"`
	ObjectKey  string `db:"object_key"`
	ExportedAt string `db:"exported_at"`
}

func (r *repository) RecordUpload(ctx context.Context, upload *models.Upload) error {
	query := `
		INSERT OR REPLACE INTO uploads (file_id, filename, size_bytes, uploaded_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		upload.FileID,
		upload.Filename,
		upload.SizeBytes,
		formatTime(upload.UploadedAt),
	)

	return err
}

func (r *repository) RecordBRD(ctx context.Context, brd *models.BRDRecord) error {
	query := `
		INSERT OR REPLACE INTO brds (brd_id, file_id, key_point_count, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		brd.BRDID,
		brd.FileID,
		brd.KeyPointCount,
		formatTime(brd.CreatedAt),
	)

	return err
}

func (r *repository) RecordExport(ctx context.Context, export *models.Export) error {
	query := `
		INSERT OR REPLACE INTO exports (brd_id, object_key, exported_at)
		VALUES (?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, export.BRDID, export.ObjectKey, formatTime(export.ExportedAt))

	return err
}

func (r *repository) RecentUploads(ctx context.Context, limit int) ([]models.Upload, error) {
	query := `
		SELECT file_id, filename, size_bytes, uploaded_at
		FROM uploads
		ORDER BY uploaded_at DESC
		LIMIT ?
	`

	var rows []uploadRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}

	uploads := make([]models.Upload, 0, len(rows))
	for _, row := range rows {
		uploadedAt, err := parseTime(row.UploadedAt)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, models.Upload{
			FileID:     row.FileID,
			Filename:   row.Filename,
			SizeBytes:  row.SizeBytes,
			UploadedAt: uploadedAt,
		})
	}

	return uploads, nil
}

func (r *repository) BRDsForFile(ctx context.Context, fileID string) ([]models.BRDRecord, error) {
	query := `
		SELECT brd_id, file_id, key_point_count, created_at
		FROM brds
		WHERE file_id = ?
		ORDER BY created_at DESC
	`

	var rows []brdRow
	if err := r.db.SelectContext(ctx, &rows, query, fileID); err != nil {
		return nil, err
	}

	brds := make([]models.BRDRecord, 0, len(rows))
	for _, row := range rows {
		createdAt, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, err
		}
		brds = append(brds, models.BRDRecord{
			BRDID:         row.BRDID,
			FileID:        row.FileID,
			KeyPointCount: row.KeyPointCount,
			CreatedAt:     createdAt,
		})
	}

	return brds, nil
}

func (r *repository) LatestExport(ctx context.Context, brdID string) (*models.Export, error) {
	query := `
		SELECT brd_id, object_key, exported_at
		FROM exports
		WHERE brd_id = ?
		ORDER BY exported_at DESC
		LIMIT 1
	`

	var row exportRow
	err := r.db.GetContext(ctx, &row, query, brdID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	exportedAt, err := parseTime(row.ExportedAt)
	if err != nil {
		return nil, err
	}

	return &models.Export{BRDID: row.BRDID, ObjectKey: row.ObjectKey, ExportedAt: exportedAt}, nil
}

// Times are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}
