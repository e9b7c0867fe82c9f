package models

import "time"

// Upload is a file this client sent to the backend.
type Upload struct {
	FileID     string
	Filename   string
	SizeBytes  int64
	UploadedAt time.Time
}

// BRDRecord is a BRD this client asked the backend to compose.
type BRDRecord struct {
	BRDID         string
	FileID        string
	KeyPointCount int
	CreatedAt     time.Time
}

// Export is a BRD artifact copied to object storage.
type Export struct {
	BRDID      string
	ObjectKey  string
	ExportedAt time.Time
}
