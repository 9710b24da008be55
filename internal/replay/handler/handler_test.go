package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fairdraw/internal/integrity"
	"fairdraw/internal/integrity/keys"
	"fairdraw/internal/replay"
	"fairdraw/internal/replay/replaytest"
	"fairdraw/pkg/platform/httputil"
	"fairdraw/pkg/platform/middleware/metadata"
	"fairdraw/pkg/testutil"
)

// HandlerSuite drives the verification endpoints with real artifacts.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
	run    replaytest.Run
}

func (s *HandlerSuite) SetupTest() {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	r := chi.NewRouter()
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	h.Register(r)
	s.router = r
	s.run = replaytest.Publish(s.T())
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) TestReplay() {
	s.Run("untampered artifacts pass", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verify/replay", ReplayRequest{
			Summary:    s.run.SummaryText,
			AuditJSONL: s.run.AuditJSONL,
		})
		rr := testutil.DoRequest(s.router, req)

		require.Equal(s.T(), http.StatusOK, rr.Code)
		var res replay.Result
		require.NoError(s.T(), json.NewDecoder(rr.Body).Decode(&res))
		assert.True(s.T(), res.ChainOK)
		assert.True(s.T(), res.ReplayOK)
		assert.Empty(s.T(), res.Reasons)
		assert.NotEmpty(s.T(), rr.Header().Get(metadata.RequestIDHeader))
	})

	s.Run("broken chain is a negative result, not an error", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verify/replay", ReplayRequest{
			Summary:    s.run.SummaryText,
			AuditJSONL: "{not json",
		})
		rr := testutil.DoRequest(s.router, req)

		require.Equal(s.T(), http.StatusOK, rr.Code)
		var res replay.Result
		require.NoError(s.T(), json.NewDecoder(rr.Body).Decode(&res))
		assert.False(s.T(), res.ReplayOK)
		assert.NotEmpty(s.T(), res.Reasons)
	})

	s.Run("missing summary is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verify/replay", ReplayRequest{AuditJSONL: s.run.AuditJSONL})
		rr := testutil.DoRequest(s.router, req)

		assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
		var body httputil.ErrorResponse
		require.NoError(s.T(), json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(s.T(), "summary is required", body.ErrorDescription)
	})

	s.Run("invalid JSON", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/verify/replay", "nope")
		rr := testutil.DoRequest(s.router, req)
		assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestIndividual() {
	winner := s.run.Summary.DrawOutput.Winners[0]

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verify/individual", IndividualRequest{
		ReplayRequest: ReplayRequest{Summary: s.run.SummaryText, AuditJSONL: s.run.AuditJSONL},
		Lookup:        " " + winner,
	})
	rr := testutil.DoRequest(s.router, req)

	require.Equal(s.T(), http.StatusOK, rr.Code)
	var res IndividualResponse
	require.NoError(s.T(), json.NewDecoder(rr.Body).Decode(&res))
	assert.True(s.T(), res.ReplayOK)
	assert.Equal(s.T(), replay.StatusWinner, res.Status)
	require.NotNil(s.T(), res.Applicant)
	assert.Equal(s.T(), winner, res.Applicant.AnonID)

	s.Run("blank lookup is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verify/individual", IndividualRequest{
			ReplayRequest: ReplayRequest{Summary: s.run.SummaryText, AuditJSONL: s.run.AuditJSONL},
			Lookup:        "  ",
		})
		rr := testutil.DoRequest(s.router, req)
		assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestIntegrity() {
	signer := integrity.NewSigner(keys.NewMemory())
	bundle, err := signer.Seal(context.Background(), s.run.AuditJSONL, s.run.SummaryText)
	require.NoError(s.T(), err)

	input := integrity.BundleInput{
		ManifestText:    bundle.ManifestJSON,
		SignatureBase64: bundle.SignatureBase64,
		PublicKeyText:   bundle.PublicKeyJWK,
		AuditJSONL:      s.run.AuditJSONL,
		AuditSummary:    s.run.SummaryText,
	}

	s.Run("sealed bundle verifies", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verify/integrity", IntegrityRequest{BundleInput: input})
		rr := testutil.DoRequest(s.router, req)

		require.Equal(s.T(), http.StatusOK, rr.Code)
		var report integrity.Report
		require.NoError(s.T(), json.NewDecoder(rr.Body).Decode(&report))
		assert.True(s.T(), report.HashOK)
		assert.True(s.T(), report.SignatureOK)
	})

	s.Run("edited summary fails the digest but not the signature", func() {
		tampered := input
		tampered.AuditSummary += " "
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verify/integrity", IntegrityRequest{BundleInput: tampered})
		rr := testutil.DoRequest(s.router, req)

		require.Equal(s.T(), http.StatusOK, rr.Code)
		var report integrity.Report
		require.NoError(s.T(), json.NewDecoder(rr.Body).Decode(&report))
		assert.False(s.T(), report.HashOK)
		assert.True(s.T(), report.SignatureOK)
		assert.Equal(s.T(), []string{integrity.ReasonDigestMismatch}, report.Reasons)
	})

	s.Run("missing signature is rejected", func() {
		missing := input
		missing.SignatureBase64 = ""
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verify/integrity", IntegrityRequest{BundleInput: missing})
		rr := testutil.DoRequest(s.router, req)
		assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	})
}
