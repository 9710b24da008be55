package run

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fairdraw/internal/audit"
	"fairdraw/internal/integrity"
	"fairdraw/internal/lottery"
	"fairdraw/internal/randomness"
	"fairdraw/internal/replay"
	"fairdraw/internal/run/metrics"
	dErrors "fairdraw/pkg/domain-errors"
	platformaudit "fairdraw/pkg/platform/audit"
	"fairdraw/pkg/platform/sentinel"
	"fairdraw/pkg/requestcontext"
)

// RandomnessFetcher collects one sample per provider and the consensus.
type RandomnessFetcher interface {
	Fetch(ctx context.Context) (*randomness.Result, error)
}

// SnapshotStore locks fetched randomness to a run id so a retry after a
// quorum failure commits to the same samples.
type SnapshotStore interface {
	Save(ctx context.Context, runID string, res *randomness.Result) error
	Load(ctx context.Context, runID string) (*randomness.Result, error)
	Delete(ctx context.Context, runID string) error
}

// Store persists completed runs. Save returns sentinel.ErrConflict for an
// existing run id; FindByID returns sentinel.ErrNotFound.
type Store interface {
	Save(ctx context.Context, r *Run) error
	FindByID(ctx context.Context, runID string) (*Run, error)
}

// Sealer signs the exported audit log and summary.
type Sealer interface {
	Seal(ctx context.Context, auditJSONL, auditSummary string) (*integrity.Bundle, error)
}

// AuditRecorder durably stores chain entries. A run is not published unless
// its entries were recorded.
type AuditRecorder interface {
	Emit(ctx context.Context, records []platformaudit.Record) error
}

// AuditReader reads recorded chain entries back.
type AuditReader interface {
	ListByRun(ctx context.Context, runID string) ([]platformaudit.Record, error)
}

// AuditStream forwards chain entries to downstream consumers, best effort.
type AuditStream interface {
	Enqueue(records ...platformaudit.Record)
}

// TxRunner runs fn atomically. Stores read the transaction from ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service executes and serves draws.
type Service struct {
	randomness RandomnessFetcher
	snapshots  SnapshotStore
	store      Store
	sealer     Sealer
	recorder   AuditRecorder
	reader     AuditReader
	stream     AuditStream
	tx         TxRunner
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	appVersion string
	now        func() time.Time
	newSalt    func() (string, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditRecorder enables durable recording of chain entries.
func WithAuditRecorder(r AuditRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithAuditReader enables VerifyStored.
func WithAuditReader(r AuditReader) Option {
	return func(s *Service) {
		s.reader = r
	}
}

func WithAuditStream(st AuditStream) Option {
	return func(s *Service) {
		s.stream = st
	}
}

// WithTx makes recording the chain entries and storing the run one unit.
func WithTx(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithAppVersion(v string) Option {
	return func(s *Service) {
		s.appVersion = v
	}
}

// WithClock overrides every timestamp the service produces, for tests.
// Without it events use the wall clock and a run's CreatedAt is the request
// time carried in the context.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSaltSource overrides run salt generation, for tests.
func WithSaltSource(fn func() (string, error)) Option {
	return func(s *Service) {
		s.newSalt = fn
	}
}

// New wires a run service. Randomness, snapshots, store and sealer are
// required.
func New(fetcher RandomnessFetcher, snapshots SnapshotStore, store Store, sealer Sealer, opts ...Option) (*Service, error) {
	if fetcher == nil || snapshots == nil || store == nil || sealer == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "randomness, snapshot store, run store and sealer are required")
	}
	s := &Service{
		randomness: fetcher,
		snapshots:  snapshots,
		store:      store,
		sealer:     sealer,
		tx:         noTx{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     otel.Tracer("fairdraw/run"),
		appVersion: "dev",
		newSalt:    randomSalt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// randomSalt returns 32 random bytes as lowercase hex.
func randomSalt() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Execute runs one draw end to end. On insufficient randomness nothing is
// published and the fetched samples stay locked to the returned run id, so
// the caller can retry with a manual override for the missing metric.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (*Run, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = "run-" + uuid.NewString()
	}
	ctx, span := s.tracer.Start(ctx, "run.execute", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	r, err := s.execute(ctx, runID, req)
	switch {
	case err == nil:
		s.metrics.IncrementDraw(metrics.OutcomeSuccess)
	case dErrors.HasCode(err, dErrors.CodeInsufficientRandomness):
		s.metrics.IncrementDraw(metrics.OutcomeInsufficientRandomness)
		s.logger.WarnContext(ctx, "draw halted on insufficient randomness",
			"run_id", runID,
			"error", err,
		)
		return nil, err
	default:
		s.metrics.IncrementDraw(metrics.OutcomeError)
		s.logger.ErrorContext(ctx, "draw failed",
			"run_id", runID,
			"error", err,
		)
		return nil, err
	}

	s.metrics.ObserveDraw(time.Since(start), len(r.Winners)+len(r.Waitlist))
	s.logger.InfoContext(ctx, "draw completed",
		"run_id", r.RunID,
		"seed_hash", r.SeedHash,
		"final_hash", r.FinalHash,
		"winners", len(r.Winners),
		"waitlist", len(r.Waitlist),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return r, nil
}

func (s *Service) execute(ctx context.Context, runID string, req ExecuteRequest) (*Run, error) {
	if _, err := s.store.FindByID(ctx, runID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "run "+runID+" was already published")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up run")
	}

	rnd, err := s.lockRandomness(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(rnd, req.Overrides); err != nil {
		return nil, err
	}
	if err := rnd.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInsufficientRandomness,
			"run "+runID+" needs a manual override for every metric without quorum")
	}
	btc, okBTC := rnd.Metric(randomness.MetricBTC)
	nist, okNIST := rnd.Metric(randomness.MetricNIST)
	if !okBTC || !okNIST {
		return nil, dErrors.New(dErrors.CodeInternal, "randomness result lacks a required metric")
	}

	salt, err := s.newSalt()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate run salt")
	}
	material := lottery.SeedMaterial{
		ExcelHash:          req.ExcelHash,
		Config:             req.Config,
		FinalBTCValueUsed:  btc.FinalValue,
		FinalNISTValueUsed: nist.FinalValue,
		RunID:              runID,
		RunSaltHex:         salt,
	}

	valid := make([]lottery.Applicant, 0, len(req.Applicants))
	localMatches := 0
	for _, a := range req.Applicants {
		if a.Valid {
			valid = append(valid, a)
		}
		if a.SelectedDongMatch {
			localMatches++
		}
	}

	chain := audit.NewChain(audit.WithClock(s.clock))
	appendEvent := func(t audit.EventType, data any) error {
		if _, err := chain.Append(t, data); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append "+string(t))
		}
		return nil
	}

	if err := appendEvent(audit.EventRunStarted, audit.RunStarted{
		AppVersion: s.appVersion,
		RunID:      runID,
		RunSaltHex: salt,
		ExcelHash:  req.ExcelHash,
		Config:     req.Config,
	}); err != nil {
		return nil, err
	}
	uploaded := req.UploadedRows
	if uploaded == 0 {
		uploaded = len(req.Applicants)
	}
	if err := appendEvent(audit.EventApplicantsLoaded, audit.ApplicantsLoaded{
		UploadedRows:      uploaded,
		ValidApplicants:   len(valid),
		InvalidApplicants: len(req.Applicants) - len(valid),
		LocalMatches:      localMatches,
		DuplicatePolicy:   req.DuplicatePolicy,
	}); err != nil {
		return nil, err
	}
	if err := appendEvent(audit.EventRandomnessFetched, audit.RandomnessFetched{BTC: btc, NIST: nist}); err != nil {
		return nil, err
	}

	_, drawSpan := s.tracer.Start(ctx, "lottery.draw")
	draw, err := lottery.RunLottery(valid, req.Config, material)
	drawSpan.End()
	if err != nil {
		return nil, err
	}

	if err := appendEvent(audit.EventSeedDerived, audit.SeedDerived{
		SeedParts: lottery.CanonicalSeedParts(material),
		SeedHash:  draw.SeedHash,
	}); err != nil {
		return nil, err
	}
	if err := appendEvent(audit.EventDrawCompleted, audit.DrawCompleted{
		GuaranteeQuota: draw.GuaranteeQuota,
		Winners:        draw.WinnerIDs(),
		Waitlist:       draw.WaitlistIDs(),
		Step1:          draw.Step1WinnerAnonIDs,
		Step2:          draw.Step2WinnerAnonIDs,
		Ordering:       draw.Ordering,
	}); err != nil {
		return nil, err
	}

	projection := make([]audit.ReplayApplicant, len(req.Applicants))
	for i, a := range req.Applicants {
		projection[i] = audit.ReplayApplicantFrom(a)
	}
	summary := &audit.Summary{
		AppVersion:  s.appVersion,
		ExcelHash:   req.ExcelHash,
		RunID:       runID,
		RunSaltHex:  salt,
		SeedHash:    draw.SeedHash,
		FinalHash:   chain.FinalHash(),
		GeneratedAt: s.clock().UTC().Format(audit.TimestampLayout),
		Config: audit.SummaryConfig{
			SelectedDong:   req.Config.SelectedDong,
			Capacity:       req.Config.Capacity,
			RoundingMode:   req.Config.RoundingMode,
			GuaranteeQuota: draw.GuaranteeQuota,
		},
		Randomness: audit.SummaryRandomness{BTC: btc, NIST: &nist},
		Totals: audit.Totals{
			UploadedRows:      uploaded,
			ValidApplicants:   len(valid),
			InvalidApplicants: len(req.Applicants) - len(valid),
			Winners:           len(draw.Winners),
			Waitlist:          len(draw.Waitlist),
		},
		ApplicantsForReplay: projection,
		DrawOutput:          audit.DrawOutputFrom(draw),
	}

	events := chain.Events()
	artifacts, err := s.export(ctx, summary, events)
	if err != nil {
		return nil, err
	}

	records := audit.ToRecords(runID, events)
	r := &Run{
		RunID:        runID,
		SeedHash:     draw.SeedHash,
		FinalHash:    summary.FinalHash,
		SelectedDong: req.Config.SelectedDong,
		Capacity:     req.Config.Capacity,
		Winners:      draw.WinnerIDs(),
		Waitlist:     draw.WaitlistIDs(),
		Artifacts:    artifacts,
		CreatedAt:    s.requestTime(ctx).UTC(),
	}
	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.publish(ctx, r, records)
	}); err != nil {
		return nil, err
	}

	if s.stream != nil {
		s.stream.Enqueue(records...)
	}
	if err := s.snapshots.Delete(ctx, runID); err != nil {
		s.logger.WarnContext(ctx, "failed to release randomness snapshot",
			"run_id", runID,
			"error", err,
		)
	}
	return r, nil
}

// publish records the chain entries and then stores the run. Recording is
// fail-closed: a run whose entries were not recorded is never stored.
func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Service) requestTime(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

func (s *Service) publish(ctx context.Context, r *Run, records []platformaudit.Record) error {
	if s.recorder != nil {
		if err := s.recorder.Emit(ctx, records); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit trail")
		}
	}
	if err := s.store.Save(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "run "+r.RunID+" was already published")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store run")
	}
	return nil
}

// lockRandomness returns the snapshot for runID, fetching and saving one on
// first use.
func (s *Service) lockRandomness(ctx context.Context, runID string) (*randomness.Result, error) {
	rnd, err := s.snapshots.Load(ctx, runID)
	if err == nil {
		s.logger.InfoContext(ctx, "reusing locked randomness", "run_id", runID)
		return rnd, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load randomness snapshot")
	}

	rnd, err = s.randomness.Fetch(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to fetch randomness")
	}
	if err := s.snapshots.Save(ctx, runID, rnd); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to lock randomness snapshot")
	}
	return rnd, nil
}

// applyOverrides sets operator values on metrics that missed quorum. A metric
// that reached quorum cannot be overridden.
func applyOverrides(rnd *randomness.Result, overrides map[randomness.MetricKind]string) error {
	for _, kind := range []randomness.MetricKind{randomness.MetricBTC, randomness.MetricNIST} {
		value, ok := overrides[kind]
		if !ok {
			continue
		}
		m, found := rnd.Metric(kind)
		if !found {
			return dErrors.New(dErrors.CodeInvalidInput, "unknown randomness metric: "+string(kind))
		}
		if m.Reached() {
			return dErrors.New(dErrors.CodeConflict, string(kind)+" reached quorum and cannot be overridden")
		}
		if err := rnd.Override(kind, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) export(ctx context.Context, summary *audit.Summary, events []audit.Event) (Artifacts, error) {
	ctx, span := s.tracer.Start(ctx, "run.export")
	defer span.End()

	summaryText, err := audit.MarshalSummary(summary)
	if err != nil {
		return Artifacts{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to export summary")
	}
	jsonl, err := audit.ToJSONLines(events)
	if err != nil {
		return Artifacts{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to export audit log")
	}
	bundle, err := s.sealer.Seal(ctx, jsonl, summaryText)
	if err != nil {
		return Artifacts{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal artifacts")
	}
	return Artifacts{
		AuditJSONL:   jsonl,
		AuditSummary: summaryText,
		Manifest:     bundle.ManifestJSON,
		Signature:    bundle.SignatureBase64,
		PublicKeyJWK: bundle.PublicKeyJWK,
	}, nil
}

// Get returns a published run.
func (s *Service) Get(ctx context.Context, runID string) (*Run, error) {
	r, err := s.store.FindByID(ctx, strings.TrimSpace(runID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "run not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load run")
	}
	return r, nil
}

// VerifyStored replays a published run against the chain entries recorded
// at publication time rather than the exported log, so a swapped export is
// caught.
func (s *Service) VerifyStored(ctx context.Context, runID string) (*replay.Result, error) {
	if s.reader == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "audit records are not available")
	}
	r, err := s.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	records, err := s.reader.ListByRun(ctx, r.RunID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit records")
	}
	summary, err := audit.ParseSummary(r.Artifacts.AuditSummary)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "stored summary is unreadable")
	}
	return replay.VerifyAuditAndReplay(summary, audit.FromRecords(records))
}
