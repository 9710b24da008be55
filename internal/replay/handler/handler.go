// Package handler exposes replay and integrity verification over HTTP. The
// endpoints are unauthenticated: anyone holding the published artifacts may
// verify them.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fairdraw/internal/integrity"
	"fairdraw/internal/replay"
	"fairdraw/internal/replay/metrics"
	"fairdraw/pkg/platform/httputil"
	"fairdraw/pkg/requestcontext"
)

// Handler serves the /verify endpoints.
type Handler struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New constructs a verification handler.
func New(logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("fairdraw/replay"),
	}
}

// Register mounts the verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify/replay", h.HandleReplay)
	r.Post("/verify/individual", h.HandleIndividual)
	r.Post("/verify/integrity", h.HandleIntegrity)
}

// HandleReplay handles POST /verify/replay.
func (h *Handler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ReplayRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res := h.replay(ctx, "replay", req.Summary, req.AuditJSONL)
	h.logOutcome(ctx, "replay", res.ReplayOK, res.Reasons)
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleIndividual handles POST /verify/individual. The draw is replayed
// first; the published winner lists are never consulted.
func (h *Handler) HandleIndividual(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IndividualRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res := h.replay(ctx, "individual", req.Summary, req.AuditJSONL)
	individual := replay.VerifyIndividual(req.Lookup, res.Replayed)
	h.logOutcome(ctx, "individual", res.ReplayOK, res.Reasons, "status", individual.Status)
	httputil.WriteJSON(w, http.StatusOK, toIndividualResponse(res, individual))
}

// HandleIntegrity handles POST /verify/integrity.
func (h *Handler) HandleIntegrity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[IntegrityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	_, span := h.tracer.Start(ctx, "replay.verify", trace.WithAttributes(attribute.String("kind", "integrity")))
	report := integrity.VerifyBundle(req.BundleInput)
	span.SetAttributes(attribute.Bool("ok", report.OK()))
	span.End()

	h.metrics.RecordVerification("integrity", report.OK(), time.Since(start))
	h.logOutcome(ctx, "integrity", report.OK(), report.Reasons)
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) replay(ctx context.Context, kind, summary, auditJSONL string) *replay.Result {
	start := time.Now()
	_, span := h.tracer.Start(ctx, "replay.verify", trace.WithAttributes(attribute.String("kind", kind)))
	defer span.End()

	res := replay.VerifyArtifacts(summary, auditJSONL)
	span.SetAttributes(
		attribute.Bool("chain_ok", res.ChainOK),
		attribute.Bool("replay_ok", res.ReplayOK),
	)
	h.metrics.RecordVerification(kind, res.ReplayOK, time.Since(start))
	return res
}

func (h *Handler) logOutcome(ctx context.Context, kind string, ok bool, reasons []string, extra ...any) {
	client := requestcontext.Client(ctx)
	args := []any{
		"request_id", requestcontext.RequestID(ctx),
		"kind", kind,
		"ok", ok,
		"reasons", reasons,
		"client_ip", requestcontext.ClientIP(ctx),
		"browser", client.Browser,
		"os", client.OS,
	}
	h.logger.InfoContext(ctx, "verification completed", append(args, extra...)...)
}
