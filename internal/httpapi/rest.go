package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/telemetry"
)

// CommandLimiter is the rate-limiting dependency RateLimit consumes;
// satisfied by cache.CommandLimiter.
type CommandLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Controller is the command surface this handler exposes over REST;
// satisfied by *controller.Controller.
type Controller interface {
	Start(ctx context.Context) error
	Pause()
	Resume(ctx context.Context) error
	MarkDone(ctx context.Context, occurrenceID string) error
	RetryOccurrence(ctx context.Context, occurrenceID string) (*domain.TaskOccurrence, error)
	GetScheduledOccurrences(ctx context.Context) ([]domain.TaskOccurrence, error)
	RecoverMissedTasks(ctx context.Context) ([]domain.TaskOccurrence, error)
}

// REST handles HTTP requests over the scheduler's command surface.
type REST struct {
	controller Controller
	logger     *slog.Logger
}

// NewREST creates a REST handler.
func NewREST(controller Controller, logger *slog.Logger) *REST {
	if logger == nil {
		logger = slog.Default()
	}
	return &REST{controller: controller, logger: logger}
}

// Start handles POST /v1/scheduler/start.
func (h *REST) Start(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("httpapi").Start(r.Context(), "httpapi.start")
	defer span.End()

	if err := h.controller.Start(ctx); err != nil {
		telemetry.RecordAPICommand("start", "error")
		h.fail(w, span, "failed to start scheduler", err)
		return
	}
	telemetry.RecordAPICommand("start", "success")
	writeOK(w, map[string]string{"status": "started"})
}

// Pause handles POST /v1/scheduler/pause.
func (h *REST) Pause(w http.ResponseWriter, r *http.Request) {
	h.controller.Pause()
	telemetry.RecordAPICommand("pause", "success")
	writeOK(w, map[string]string{"status": "paused"})
}

// Resume handles POST /v1/scheduler/resume.
func (h *REST) Resume(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("httpapi").Start(r.Context(), "httpapi.resume")
	defer span.End()

	if err := h.controller.Resume(ctx); err != nil {
		telemetry.RecordAPICommand("resume", "error")
		h.fail(w, span, "failed to resume scheduler", err)
		return
	}
	telemetry.RecordAPICommand("resume", "success")
	writeOK(w, map[string]string{"status": "resumed"})
}

// Recover handles POST /v1/scheduler/recover.
func (h *REST) Recover(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("httpapi").Start(r.Context(), "httpapi.recover")
	defer span.End()

	occs, err := h.controller.RecoverMissedTasks(ctx)
	if err != nil {
		telemetry.RecordAPICommand("recover", "error")
		h.fail(w, span, "failed to recover missed tasks", err)
		return
	}
	telemetry.RecordAPICommand("recover", "success")
	writeOK(w, occs)
}

// ListOccurrences handles GET /v1/occurrences.
func (h *REST) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("httpapi").Start(r.Context(), "httpapi.list_occurrences")
	defer span.End()

	occs, err := h.controller.GetScheduledOccurrences(ctx)
	if err != nil {
		h.fail(w, span, "failed to list occurrences", err)
		return
	}
	writeOK(w, occs)
}

// MarkDone handles POST /v1/occurrences/{id}/done.
func (h *REST) MarkDone(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("httpapi").Start(r.Context(), "httpapi.mark_done")
	defer span.End()

	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("occurrence.id", id))

	if err := h.controller.MarkDone(ctx, id); err != nil {
		telemetry.RecordAPICommand("mark_done", "error")
		h.failCommand(w, span, err)
		return
	}
	telemetry.RecordAPICommand("mark_done", "success")
	writeOK(w, map[string]string{"status": "done"})
}

// RetryOccurrence handles POST /v1/occurrences/{id}/retry.
func (h *REST) RetryOccurrence(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("httpapi").Start(r.Context(), "httpapi.retry_occurrence")
	defer span.End()

	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("occurrence.id", id))

	next, err := h.controller.RetryOccurrence(ctx, id)
	if err != nil {
		telemetry.RecordAPICommand("retry_occurrence", "error")
		h.failCommand(w, span, err)
		return
	}
	telemetry.RecordAPICommand("retry_occurrence", "success")
	writeOK(w, next)
}

// Healthz handles GET /healthz.
func (h *REST) Healthz(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz.
func (h *REST) Readyz(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{"status": "ready"})
}

// fail records the error on span, logs it, and responds 500.
func (h *REST) fail(w http.ResponseWriter, span trace.Span, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	h.logger.Error(msg, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, msg)
}

// failCommand maps the Controller's typed errors to the right HTTP status;
// unrecognized errors fall through to a 500.
func (h *REST) failCommand(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)

	var unknownOcc *domain.UnknownOccurrenceError
	var unknownTask *domain.UnknownTaskError
	switch {
	case errors.As(err, &unknownOcc), errors.As(err, &unknownTask):
		span.SetStatus(codes.Error, "not found")
		writeError(w, http.StatusNotFound, err.Error())
	default:
		span.SetStatus(codes.Error, "command failed")
		h.logger.Error("command failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeOK(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck
}
