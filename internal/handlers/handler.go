// Package handlers serves the upload, file status, BRD and ticket pages.
package handlers

import (
	"context"
	"fmt"

	"github.com/BerylCAtieno/brdflow/internal/services"
	"github.com/BerylCAtieno/brdflow/internal/utils"
)

const (
	DefaultMaxFileSize = 100 << 20
	acceptedExtensions = ".pdf,.mp3,.mp4,.wav"
)

type Handler struct {
	service     services.WorkflowService
	logger      *utils.Logger
	maxFileSize int64
	streams     context.Context
}

type Option func(*Handler)

// WithStreamContext ends every open status stream once ctx is done. Other
// requests are unaffected.
func WithStreamContext(ctx context.Context) Option {
	return func(h *Handler) { h.streams = ctx }
}

func NewHandler(service services.WorkflowService, logger *utils.Logger, maxFileSize int64, opts ...Option) *Handler {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	h := &Handler{
		service:     service,
		logger:      logger,
		maxFileSize: maxFileSize,
		streams:     context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func formatMegabytes(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
}
