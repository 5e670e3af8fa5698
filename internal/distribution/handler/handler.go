// Package handler serves the distribution screen: the unassigned queue,
// prior-owner suggestions and assignments.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"caseflow/internal/cases/models"
	"caseflow/internal/platform/middleware"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/httputil"
)

type Service interface {
	SuggestPriorOwners(ctx context.Context, caseIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	Assign(ctx context.Context, caseID, ownerID uuid.UUID) error
	Queue(ctx context.Context) ([]*models.Case, error)
}

type Handler struct {
	logger       *slog.Logger
	distribution Service
	validator    middleware.ActorValidator
}

func New(distribution Service, logger *slog.Logger, validator middleware.ActorValidator) *Handler {
	return &Handler{
		logger:       logger,
		distribution: distribution,
		validator:    validator,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(distRouter chi.Router) {
		distRouter.Use(middleware.Recovery(h.logger))
		distRouter.Use(middleware.RequestID)
		distRouter.Use(middleware.RequestTime)
		distRouter.Use(middleware.Logger(h.logger))
		distRouter.Use(middleware.Timeout(30 * time.Second))
		distRouter.Use(middleware.ContentTypeJSON)
		distRouter.Use(middleware.RequireActor(h.validator, h.logger))

		distRouter.Get("/distribution/queue", h.handleQueue)
		distRouter.Post("/distribution/suggestions", h.handleSuggestions)
		distRouter.Post("/cases/{id}/assign", h.handleAssign)
	})
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.distribution.Queue(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": queue})
}

type suggestionsRequest struct {
	CaseIDs []uuid.UUID `json:"case_ids"`
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.CaseIDs) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "case_ids is required"))
		return
	}

	suggestions, err := h.distribution.SuggestPriorOwners(r.Context(), req.CaseIDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

type assignRequest struct {
	OwnerID uuid.UUID `json:"owner_id"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid case id"))
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.distribution.Assign(r.Context(), caseID, req.OwnerID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
