package router

import (
	"net/http"

	"github.com/BerylCAtieno/brdflow/internal/handlers"
	"github.com/BerylCAtieno/brdflow/internal/middleware"
	"github.com/BerylCAtieno/brdflow/internal/services"
	"github.com/BerylCAtieno/brdflow/internal/utils"

	"github.com/gorilla/mux"
)

func NewRouter(service services.WorkflowService, logger *utils.Logger, maxFileSize int64, opts ...handlers.Option) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	h := handlers.NewHandler(service, logger, maxFileSize, opts...)

	// Health check
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Upload view
	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)

	// File status view
	r.HandleFunc("/files/{id}", h.File).Methods(http.MethodGet)
	r.HandleFunc("/files/{id}/events", h.FileEvents).Methods(http.MethodGet)
	r.HandleFunc("/files/{id}/brds", h.CreateBRD).Methods(http.MethodPost)

	// BRD view
	r.HandleFunc("/brds/{id}", h.BRD).Methods(http.MethodGet)
	r.HandleFunc("/brds/{id}/pdf", h.BRDPDF).Methods(http.MethodGet)
	r.HandleFunc("/brds/{id}/pdf/text", h.BRDPDFText).Methods(http.MethodGet)
	r.HandleFunc("/brds/{id}/export", h.ExportBRD).Methods(http.MethodPost)
	r.HandleFunc("/brds/{id}/feedback", h.SubmitFeedback).Methods(http.MethodPost)
	r.HandleFunc("/brds/{id}/tickets", h.CreateTicket).Methods(http.MethodPost)

	// Ticket manager
	r.HandleFunc("/tickets", h.Tickets).Methods(http.MethodGet)

	return r
}
