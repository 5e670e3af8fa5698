// Package handler exposes case registration, lookup, lifecycle
// transitions and the case-number normalizer over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"caseflow/internal/casenumber"
	"caseflow/internal/cases/models"
	"caseflow/internal/cases/store"
	"caseflow/internal/platform/middleware"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/httputil"
)

// Service defines the case operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, c *models.Case) (*models.Case, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Case, error)
	List(ctx context.Context, f store.Filter) ([]*models.Case, error)
	ListByNumberVariants(ctx context.Context, raw string) ([]*models.Case, error)
	History(ctx context.Context, caseID uuid.UUID) ([]models.HistoryEntry, error)
	Transition(ctx context.Context, caseID uuid.UUID, newState models.State,
		comment, officeRef, destination string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	logger    *slog.Logger
	cases     Service
	validator middleware.ActorValidator
}

func New(cases Service, logger *slog.Logger, validator middleware.ActorValidator) *Handler {
	return &Handler{
		logger:    logger,
		cases:     cases,
		validator: validator,
	}
}

// Register mounts the case routes. The normalizer endpoint is open; every
// case mutation requires an actor token.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(caseRouter chi.Router) {
		caseRouter.Use(middleware.Recovery(h.logger))
		caseRouter.Use(middleware.RequestID)
		caseRouter.Use(middleware.RequestTime)
		caseRouter.Use(middleware.Logger(h.logger))
		caseRouter.Use(middleware.Timeout(30 * time.Second))
		caseRouter.Use(middleware.ContentTypeJSON)

		caseRouter.Get("/case-numbers/normalize", h.handleNormalize)

		caseRouter.Group(func(authed chi.Router) {
			authed.Use(middleware.RequireActor(h.validator, h.logger))
			authed.Post("/cases", h.handleCreate)
			authed.Get("/cases", h.handleList)
			authed.Get("/cases/{id}", h.handleGet)
			authed.Delete("/cases/{id}", h.handleDelete)
			authed.Post("/cases/{id}/transition", h.handleTransition)
			authed.Get("/cases/{id}/history", h.handleHistory)
		})
	})
}

func (h *Handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("number")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "number query parameter is required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"number":    raw,
		"canonical": casenumber.Canonical(raw),
		"variants":  casenumber.Variants(raw),
	})
}

type createCaseRequest struct {
	CaseNumber     string                `json:"case_number"`
	Classification models.Classification `json:"classification,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	CrimeType      string                `json:"crime_type,omitempty"`
	Latitude       *float64              `json:"latitude,omitempty"`
	Longitude      *float64              `json:"longitude,omitempty"`
	Reporters      []models.Party        `json:"reporters,omitempty"`
	Subjects       []models.Party        `json:"subjects,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.cases.Create(r.Context(), &models.Case{
		CaseNumber:     req.CaseNumber,
		Classification: req.Classification,
		Notes:          req.Notes,
		CrimeType:      req.CrimeType,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Reporters:      req.Reporters,
		Subjects:       req.Subjects,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if number := q.Get("number"); number != "" {
		out, err := h.cases.ListByNumberVariants(r.Context(), number)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": out})
		return
	}

	var f store.Filter
	if state := q.Get("state"); state != "" {
		parsed, err := models.ParseState(state)
		if err != nil {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown state %q", state))
			return
		}
		f.States = []models.State{parsed}
	}
	if owner := q.Get("owner_id"); owner != "" {
		ownerID, err := uuid.Parse(owner)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid owner_id"))
			return
		}
		f.OwnerID = &ownerID
	}
	if q.Get("unassigned") == "true" {
		f.Unassigned = true
	}

	out, err := h.cases.List(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid case id"))
		return
	}
	c, err := h.cases.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid case id"))
		return
	}
	if err := h.cases.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionRequest struct {
	NewState    string `json:"new_state"`
	Comment     string `json:"comment,omitempty"`
	OfficeRef   string `json:"office_reference_number,omitempty"`
	Destination string `json:"destination,omitempty"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid case id"))
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	newState, err := models.ParseState(req.NewState)
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown state %q", req.NewState))
		return
	}

	if err := h.cases.Transition(r.Context(), id, newState,
		req.Comment, req.OfficeRef, req.Destination); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid case id"))
		return
	}
	entries, err := h.cases.History(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": entries})
}
