package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type BRD struct {
	ID                string    `json:"id"`
	TranscriptionID   string    `json:"transcription_id"`
	SelectedKeyPoints []string  `json:"selected_key_points"`
	Content           string    `json:"content"`
	PDFPath           string    `json:"pdf_path"`
	Embedding         []float64 `json:"embedding,omitempty"`
	CreatedAt         Timestamp `json:"created_at"`
}

type CreateBRDRequest struct {
	FileID            string   `json:"file_id"`
	SelectedKeyPoints []string `json:"selected_key_points"`
}

type CreateBRDResponse struct {
	BRDID   string `json:"brd_id"`
	Content string `json:"content,omitempty"`
	PDFPath string `json:"pdf_path,omitempty"`
}

type SimilarBRDsRequest struct {
	SelectedKeyPoints []string `json:"selected_key_points"`
}

// Rating is a feedback score between MinRating and MaxRating in half steps.
type Rating float64

const (
	MinRating  Rating = 0.5
	MaxRating  Rating = 5
	RatingStep Rating = 0.5
)

// Valid reports whether r is a rating a user can choose.
func (r Rating) Valid() bool {
	if r < MinRating || r > MaxRating {
		return false
	}
	steps := float64(r / RatingStep)
	return steps == math.Trunc(steps)
}

func (r Rating) String() string {
	return strconv.FormatFloat(float64(r), 'f', -1, 64)
}

// ParseRating parses a form or flag value. An empty string is the zero
// Rating, meaning no rating has been chosen.
func ParseRating(s string) (Rating, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rating %q", s)
	}
	r := Rating(f)
	if !r.Valid() {
		return 0, fmt.Errorf("rating must be between %s and %s in steps of %s", MinRating, MaxRating, RatingStep)
	}
	return r, nil
}

// RatingChoices lists every selectable rating in ascending order.
func RatingChoices() []Rating {
	var out []Rating
	for r := MinRating; r <= MaxRating; r += RatingStep {
		out = append(out, r)
	}
	return out
}

type FeedbackRequest struct {
	BRDID    string `json:"brd_id"`
	Rating   Rating `json:"rating"`
	Comments string `json:"comments"`
}

type FeedbackResponse struct {
	FeedbackID string `json:"feedback_id,omitempty"`
}
