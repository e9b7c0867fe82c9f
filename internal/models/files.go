package models

// FileStatus is the processing state the backend reports for an uploaded file.
type FileStatus string

const (
	StatusUploading    FileStatus = "uploading"
	StatusTranscribing FileStatus = "transcribing"
	StatusDone         FileStatus = "done"
	StatusError        FileStatus = "error"
)

// Pending reports whether the backend is still working on the file.
func (s FileStatus) Pending() bool {
	return s == StatusUploading || s == StatusTranscribing
}

type FileRecord struct {
	ID            string         `json:"id,omitempty"`
	FileID        string         `json:"file_id,omitempty"`
	FilePath      string         `json:"file_path"`
	Status        FileStatus     `json:"status"`
	UploadTime    Timestamp      `json:"upload_time"`
	Error         string         `json:"error,omitempty"`
	Transcription *Transcription `json:"transcription,omitempty"`
}

// Identifier returns the record id, whichever field the backend filled.
func (f *FileRecord) Identifier() string {
	if f.FileID != "" {
		return f.FileID
	}
	return f.ID
}

// Failed reports whether the record describes a terminal processing error.
func (f *FileRecord) Failed() bool {
	return f.Error != "" || f.Status == StatusError
}

type KeyPoint struct {
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding,omitempty"`
	ClusterID *int      `json:"cluster_id,omitempty"`
}

type Transcription struct {
	ID        string     `json:"id"`
	FileID    string     `json:"file_id"`
	Text      string     `json:"text"`
	KeyPoints []KeyPoint `json:"key_points"`
	Timestamp Timestamp  `json:"timestamp"`
}

// Embeddings returns the embedding vectors of the key points whose text is in texts.
func (t *Transcription) Embeddings(texts []string) [][]float64 {
	want := make(map[string]bool, len(texts))
	for _, text := range texts {
		want[text] = true
	}

	var out [][]float64
	for _, kp := range t.KeyPoints {
		if want[kp.Text] && len(kp.Embedding) > 0 {
			out = append(out, kp.Embedding)
		}
	}
	return out
}

type UploadResponse struct {
	FileID string `json:"file_id"`
	Error  string `json:"error,omitempty"`
}
