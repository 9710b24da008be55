// Package handler exposes draw execution and artifact download over HTTP.
// Creating a run requires the operator token; reading a published run does
// not.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fairdraw/internal/ingest"
	"fairdraw/internal/lottery"
	"fairdraw/internal/replay"
	"fairdraw/internal/run"
	dErrors "fairdraw/pkg/domain-errors"
	"fairdraw/pkg/platform/httputil"
	"fairdraw/pkg/platform/middleware/admin"
	"fairdraw/pkg/requestcontext"
)

const (
	maxUploadBytes  = 20 << 20
	maxZipFileBytes = 64 << 20
)

// Service is the subset of run.Service the handler drives.
type Service interface {
	Execute(ctx context.Context, req run.ExecuteRequest) (*run.Run, error)
	Get(ctx context.Context, runID string) (*run.Run, error)
	VerifyStored(ctx context.Context, runID string) (*replay.Result, error)
}

// Handler serves the /runs endpoints.
type Handler struct {
	service    Service
	adminToken string
	zips       ingest.ZipMap
	logger     *slog.Logger
}

type Option func(*Handler)

// WithZipMap sets the postal-code master used when an upload carries none.
func WithZipMap(zips ingest.ZipMap) Option {
	return func(h *Handler) {
		h.zips = zips
	}
}

func New(service Service, adminToken string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:    service,
		adminToken: adminToken,
		zips:       ingest.ZipMap{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the run endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Post("/runs", h.HandleCreate)
		r.Post("/runs/upload", h.HandleUpload)
	})
	r.Get("/runs/{runID}", h.HandleGet)
	r.Get("/runs/{runID}/files/{file}", h.HandleFile)
	r.Get("/runs/{runID}/verify", h.HandleVerify)
}

// HandleCreate handles POST /runs with pre-classified applicants.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRunRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	execReq, err := req.ToExecuteRequest()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.execute(ctx, execReq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRunResponse(created))
}

// HandleUpload handles POST /runs/upload: a multipart form carrying the
// applicant workbook, the draw configuration and optionally a postal-code
// master and manual overrides.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+maxZipFileBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.WarnContext(ctx, "failed to parse upload",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart upload"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	prepared, execReq, err := h.prepareUpload(r)
	if err != nil {
		h.logger.WarnContext(ctx, "upload rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	created, err := h.execute(ctx, execReq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toUploadResponse(created, prepared))
}

func (h *Handler) prepareUpload(r *http.Request) (*ingest.Prepared, run.ExecuteRequest, error) {
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, run.ExecuteRequest{}, dErrors.New(dErrors.CodeValidation, "file is required")
	}
	defer file.Close()

	capacity, err := strconv.Atoi(strings.TrimSpace(r.FormValue("capacity")))
	if err != nil {
		return nil, run.ExecuteRequest{}, dErrors.New(dErrors.CodeValidation, "capacity must be an integer")
	}
	mode := lottery.RoundingFloor
	if v := r.FormValue("roundingMode"); strings.TrimSpace(v) != "" {
		if mode, err = lottery.ParseRoundingMode(v); err != nil {
			return nil, run.ExecuteRequest{}, err
		}
	}
	policy, err := ingest.ParseDuplicatePolicy(r.FormValue("duplicatePolicy"))
	if err != nil {
		return nil, run.ExecuteRequest{}, err
	}
	cfg := lottery.LotteryConfig{
		SelectedDong: strings.TrimSpace(r.FormValue("selectedDong")),
		Capacity:     capacity,
		RoundingMode: mode,
	}
	if err := cfg.Validate(); err != nil {
		return nil, run.ExecuteRequest{}, err
	}

	zips, err := h.uploadZipMap(r)
	if err != nil {
		return nil, run.ExecuteRequest{}, err
	}

	wb, err := ingest.ReadApplicantsXLSX(file)
	if err != nil {
		return nil, run.ExecuteRequest{}, err
	}
	prepared, err := ingest.Prepare(wb, cfg.SelectedDong, zips, policy)
	if err != nil {
		return nil, run.ExecuteRequest{}, err
	}

	overrides, err := parseOverrides(map[string]string{
		"BTC":  r.FormValue("overrideBtc"),
		"NIST": r.FormValue("overrideNist"),
	})
	if err != nil {
		return nil, run.ExecuteRequest{}, err
	}

	return prepared, run.ExecuteRequest{
		RunID:           strings.TrimSpace(r.FormValue("runId")),
		ExcelHash:       prepared.FileHash,
		Config:          cfg,
		Applicants:      prepared.Applicants,
		UploadedRows:    prepared.Stats.UploadedRows,
		DuplicatePolicy: string(prepared.Policy),
		Overrides:       overrides,
	}, nil
}

// uploadZipMap returns the postal-code master attached to the upload, or the
// configured one.
func (h *Handler) uploadZipMap(r *http.Request) (ingest.ZipMap, error) {
	f, _, err := r.FormFile("zipMapping")
	if errors.Is(err, http.ErrMissingFile) {
		return h.zips, nil
	}
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "zipMapping could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxZipFileBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "zipMapping could not be read")
	}
	return ingest.ParseZipMapping(string(data)), nil
}

func (h *Handler) execute(ctx context.Context, req run.ExecuteRequest) (*run.Run, error) {
	created, err := h.service.Execute(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "draw request failed",
			"request_id", requestcontext.RequestID(ctx),
			"run_id", req.RunID,
			"error", err,
		)
		return nil, err
	}
	h.logger.InfoContext(ctx, "run published",
		"request_id", requestcontext.RequestID(ctx),
		"run_id", created.RunID,
		"client_ip", requestcontext.ClientIP(ctx),
	)
	return created, nil
}

// HandleGet handles GET /runs/{runID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRunResponse(found))
}

// HandleFile handles GET /runs/{runID}/files/{file}. Bodies are served
// byte-for-byte as sealed.
func (h *Handler) HandleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	contentType, known := artifactContentTypes[name]
	if !known {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown artifact: "+name))
		return
	}

	found, err := h.service.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	body, _ := found.Artifacts.File(name)
	httputil.WriteText(w, contentType, name, body)
}

// HandleVerify handles GET /runs/{runID}/verify, replaying a stored run
// against its recorded chain entries.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.VerifyStored(ctx, chi.URLParam(r, "runID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !res.ReplayOK {
		h.logger.ErrorContext(ctx, "stored run failed verification",
			"request_id", requestcontext.RequestID(ctx),
			"run_id", chi.URLParam(r, "runID"),
			"reasons", res.Reasons,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
