package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/application"
)

// ReadinessCheck reports whether backing stores can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Handler struct {
	service *application.Service
	ready   ReadinessCheck
}

func NewHandler(service *application.Service, ready ReadinessCheck) *Handler {
	return &Handler{service: service, ready: ready}
}

type featuresRequest struct {
	Features map[string]float64 `json:"features"`
}

type suggestRequest struct {
	Features    map[string]float64 `json:"features"`
	TargetScore float64            `json:"target_score"`
}

type outcomeRequest struct {
	ContentID      string             `json:"content_id"`
	Features       map[string]float64 `json:"features"`
	Engagement     float64            `json:"engagement"`
	Views          *int64             `json:"views"`
	CompletionRate *float64           `json:"completion_rate"`
	RecordedAt     *time.Time         `json:"recorded_at"`
}

type modelRequest struct {
	ModelName string `json:"model_name"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"state": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			logHTTPOperationError(r.Context(), "readyz", http.StatusServiceUnavailable, "NOT_READY", err)
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"state": "ready"})
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	var req featuresRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	result, err := h.service.Predict(r.Context(), actorFromContext(r.Context()), application.PredictInput{Features: req.Features})
	if err != nil {
		h.fail(w, r, "predict", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	advice, err := h.service.SuggestImprovements(r.Context(), actorFromContext(r.Context()), application.SuggestInput{
		Features:    req.Features,
		TargetScore: req.TargetScore,
	})
	if err != nil {
		h.fail(w, r, "suggest_improvements", err)
		return
	}
	writeSuccess(w, http.StatusOK, advice)
}

func (h *Handler) featureImportance(w http.ResponseWriter, r *http.Request) {
	importance, err := h.service.GetFeatureImportance(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "feature_importance", err)
		return
	}
	writeSuccess(w, http.StatusOK, importance)
}

func (h *Handler) recordOutcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	input := application.RecordOutcomeInput{
		ContentID:      req.ContentID,
		Features:       req.Features,
		Engagement:     req.Engagement,
		Views:          req.Views,
		CompletionRate: req.CompletionRate,
	}
	if req.RecordedAt != nil {
		input.RecordedAt = *req.RecordedAt
	}
	rec, err := h.service.RecordOutcome(r.Context(), actorFromContext(r.Context()), input)
	if err != nil {
		h.fail(w, r, "record_outcome", err)
		return
	}
	writeSuccess(w, http.StatusCreated, rec)
}

func (h *Handler) retrain(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	out, err := h.service.Retrain(r.Context(), actorFromContext(r.Context()), req.ModelName)
	if err != nil {
		h.fail(w, r, "retrain", err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	active, err := h.service.Reconcile(r.Context(), actorFromContext(r.Context()), req.ModelName)
	if err != nil {
		h.fail(w, r, "reconcile", err)
		return
	}
	writeSuccess(w, http.StatusOK, active)
}

func (h *Handler) listVersions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	versions, err := h.service.ListModelVersions(r.Context(), actorFromContext(r.Context()),
		strings.TrimSpace(r.URL.Query().Get("model_name")), limit)
	if err != nil {
		h.fail(w, r, "list_model_versions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"items": versions})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code, message := mapDomainError(err)
	logHTTPOperationError(r.Context(), operation, status, code, err)
	writeError(w, status, code, message)
}

// decodeBody writes a 400 and returns false on malformed JSON. An empty body
// is accepted only when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json body")
	return false
}
