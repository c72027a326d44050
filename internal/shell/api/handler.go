// Package api provides HTTP handlers for the render API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gravitycloud/matter-deploy/internal/core/descriptor"
	"github.com/gravitycloud/matter-deploy/internal/core/render"
	"github.com/gravitycloud/matter-deploy/internal/shell/api/openapi"
)

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the render API. The handlers are a thin
// shell: all validation and rendering happens in the pure core, so requests
// share no state and can run fully concurrently.
type Handler struct {
	logger  *slog.Logger
	openapi *openapi.Generator
}

// NewHandler creates a new API handler.
func NewHandler(l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		logger:  l,
		openapi: openapi.NewGenerator(),
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)

	r.Get("/health", h.handleHealth)
	r.Get("/openapi.json", h.handleOpenAPI)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/validate", h.handleValidate)
		r.Post("/render/compose", h.handleRenderCompose)
		r.Post("/render/helm", h.handleRenderHelm)
	})

	return r
}

// =============================================================================
// Request / Response Types
// =============================================================================

// RenderRequest is the body of both render endpoints. Options is only
// consulted by the Helm endpoint.
type RenderRequest struct {
	Descriptor *descriptor.DeploymentDescriptor `json:"descriptor"`
	Options    *RenderOptions                   `json:"options,omitempty"`
}

// RenderOptions carries the explicit capacity inputs the Helm renderer
// requires.
type RenderOptions struct {
	StorageClass       string `json:"storageClass"`
	PostgresVolumeSize string `json:"postgresVolumeSize"`
}

// ValidateResponse reports the outcome of a validation request.
type ValidateResponse struct {
	Valid  bool                         `json:"valid"`
	Errors []descriptor.ValidationError `json:"errors,omitempty"`
}

// RenderResponse carries a rendered document.
type RenderResponse struct {
	RenderID string `json:"renderId"`
	Target   string `json:"target"`
	Document string `json:"document"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	spec, err := h.openapi.Generate().MarshalJSON()
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to generate openapi document"})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(spec)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.decodeDescriptor(w, r)
	if !ok {
		return
	}

	_, errs := descriptor.Validate(d)
	if len(errs) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Valid: false, Errors: errs})
		return
	}
	h.writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
}

func (h *Handler) handleRenderCompose(w http.ResponseWriter, r *http.Request) {
	d, ok := h.decodeDescriptor(w, r)
	if !ok {
		return
	}

	v, errs := descriptor.Validate(d)
	if len(errs) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Valid: false, Errors: errs})
		return
	}

	doc, err := render.RenderCompose(v)
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}
	if err := render.VerifyCompose(doc); err != nil {
		h.renderFailure(w, r, err)
		return
	}

	h.writeRendered(w, r, render.TargetCompose, doc)
}

func (h *Handler) handleRenderHelm(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Descriptor == nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "descriptor is required"})
		return
	}
	// Capacity sizing is an explicit required input. Rejecting it at the
	// boundary keeps the renderer's ContractViolation a true logic-bug
	// signal rather than a reachable client error.
	if req.Options == nil || req.Options.StorageClass == "" || req.Options.PostgresVolumeSize == "" {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "options.storageClass and options.postgresVolumeSize are required for the helm target",
		})
		return
	}

	v, errs := descriptor.Validate(req.Descriptor)
	if len(errs) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Valid: false, Errors: errs})
		return
	}

	doc, err := render.RenderHelmValues(v, render.HelmOptions{
		StorageClass:       req.Options.StorageClass,
		PostgresVolumeSize: req.Options.PostgresVolumeSize,
	})
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}

	h.writeRendered(w, r, render.TargetHelm, doc)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) decodeDescriptor(w http.ResponseWriter, r *http.Request) (*descriptor.DeploymentDescriptor, bool) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return nil, false
	}
	if req.Descriptor == nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "descriptor is required"})
		return nil, false
	}
	return req.Descriptor, true
}

// renderFailure maps renderer errors to responses. A ContractViolation is a
// logic bug in this handler, never a client problem, so it is logged loudly
// and surfaces as a plain 500.
func (h *Handler) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	var cv *descriptor.ContractViolation
	if errors.As(err, &cv) {
		h.logger.Error("render contract violation",
			"request_id", middleware.GetReqID(r.Context()),
			"op", cv.Op,
			"reason", cv.Reason,
		)
	} else {
		h.logger.Error("render failed",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal render error"})
}

func (h *Handler) writeRendered(w http.ResponseWriter, r *http.Request, target render.Target, doc string) {
	renderID := uuid.NewString()
	h.logger.Info("rendered deployment document",
		"request_id", middleware.GetReqID(r.Context()),
		"render_id", renderID,
		"target", string(target),
		"bytes", len(doc),
	)
	w.Header().Set("X-Render-ID", renderID)
	h.writeJSON(w, http.StatusOK, RenderResponse{
		RenderID: renderID,
		Target:   string(target),
		Document: doc,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
