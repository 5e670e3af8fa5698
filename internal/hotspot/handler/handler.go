// Package handler exposes hotspot detection, either over the stored
// geolocated cases or over an ad-hoc point set from the caller.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/hotspot"
	"caseflow/internal/platform/middleware"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/httputil"
)

type Service interface {
	DetectFromStore(ctx context.Context) ([]hotspot.Cluster, error)
}

type Handler struct {
	logger    *slog.Logger
	hotspots  Service
	validator middleware.ActorValidator
}

func New(hotspots Service, logger *slog.Logger, validator middleware.ActorValidator) *Handler {
	return &Handler{
		logger:    logger,
		hotspots:  hotspots,
		validator: validator,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(hotspotRouter chi.Router) {
		hotspotRouter.Use(middleware.Recovery(h.logger))
		hotspotRouter.Use(middleware.RequestID)
		hotspotRouter.Use(middleware.RequestTime)
		hotspotRouter.Use(middleware.Logger(h.logger))
		hotspotRouter.Use(middleware.Timeout(60 * time.Second))
		hotspotRouter.Use(middleware.ContentTypeJSON)
		hotspotRouter.Use(middleware.RequireActor(h.validator, h.logger))

		hotspotRouter.Post("/hotspots/detect", h.handleDetect)
	})
}

type detectRequest struct {
	Points []hotspot.Point `json:"points,omitempty"`
}

// handleDetect clusters either the submitted points or, with an empty
// body, every geolocated case in the store.
func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	var (
		clusters []hotspot.Cluster
		err      error
	)
	if len(req.Points) > 0 {
		clusters = hotspot.Detect(req.Points)
	} else {
		clusters, err = h.hotspots.DetectFromStore(r.Context())
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}
