// Package handler receives intake records from the source systems and
// feeds them to the sync service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"caseflow/internal/platform/middleware"
	"caseflow/internal/sources/models"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/httputil"
)

// Service is the sync entry point for one intake record.
type Service interface {
	Sync(ctx context.Context, kind models.Kind, record *models.Record) error
}

// RecordReader lists what a source system has filed under a case number.
type RecordReader interface {
	ListByCaseNumber(ctx context.Context, caseNumber string) ([]*models.Record, error)
}

type Handler struct {
	logger    *slog.Logger
	sync      Service
	records   RecordReader
	validator middleware.ActorValidator
}

func New(sync Service, records RecordReader, logger *slog.Logger,
	validator middleware.ActorValidator) *Handler {
	return &Handler{
		logger:    logger,
		sync:      sync,
		records:   records,
		validator: validator,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(syncRouter chi.Router) {
		syncRouter.Use(middleware.Recovery(h.logger))
		syncRouter.Use(middleware.RequestID)
		syncRouter.Use(middleware.RequestTime)
		syncRouter.Use(middleware.Logger(h.logger))
		syncRouter.Use(middleware.Timeout(30 * time.Second))
		syncRouter.Use(middleware.ContentTypeJSON)
		syncRouter.Use(middleware.RequireActor(h.validator, h.logger))

		syncRouter.Post("/sync/{kind}", h.handleSync)
		syncRouter.Get("/sources/records", h.handleListRecords)
	})
}

type syncRequest struct {
	ID          uuid.UUID  `json:"id,omitempty"`
	CaseNumber  string     `json:"case_number"`
	Destination string     `json:"destination"`
	Subject     string     `json:"subject,omitempty"`
	Origin      string     `json:"origin,omitempty"`
	OfficeRef   string     `json:"office_reference_number,omitempty"`
	ConcludedAt *time.Time `json:"concluded_at,omitempty"`
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation,
			"unknown source kind %q", chi.URLParam(r, "kind")))
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record := &models.Record{
		ID:                    req.ID,
		CaseNumber:            req.CaseNumber,
		Destination:           req.Destination,
		Subject:               req.Subject,
		Origin:                req.Origin,
		OfficeReferenceNumber: req.OfficeRef,
		ConcludedAt:           req.ConcludedAt,
	}
	if err := h.sync.Sync(r.Context(), kind, record); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "sync failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"record_id": record.ID})
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	caseNumber := r.URL.Query().Get("case_number")
	if caseNumber == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case_number query parameter is required"))
		return
	}
	records, err := h.records.ListByCaseNumber(r.Context(), caseNumber)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list records"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}
