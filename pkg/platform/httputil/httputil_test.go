package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fairdraw/pkg/domain-errors"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		code        string
		description string
	}{
		{"validation keeps its message", dErrors.New(dErrors.CodeValidation, "capacity must be positive"), http.StatusBadRequest, "validation_error", "capacity must be positive"},
		{"quorum failure is a conflict", dErrors.New(dErrors.CodeInsufficientRandomness, "run run-7 needs a manual override"), http.StatusConflict, "insufficient_randomness", "run run-7 needs a manual override"},
		{"internal error hides its message", dErrors.New(dErrors.CodeInternal, "pq: connection refused"), http.StatusInternalServerError, "internal_error", ""},
		{"uncoded error is internal", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			body := decodeError(t, w)
			assert.Equal(t, tt.code, body.Error)
			assert.Equal(t, tt.description, body.ErrorDescription)
		})
	}
}

func TestWriteText(t *testing.T) {
	w := httptest.NewRecorder()
	WriteText(w, "application/x-ndjson", "audit.jsonl", "{\"a\":1}\n")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="audit.jsonl"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "{\"a\":1}\n", w.Body.String(), "artifact bytes are served untouched")
}

type dongRequest struct {
	Dong string `json:"dong"`
}

func (r *dongRequest) Validate() error {
	r.Dong = strings.TrimSpace(r.Dong)
	if r.Dong == "" {
		return dErrors.New(dErrors.CodeValidation, "dong is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decode := func(body string) (*httptest.ResponseRecorder, *dongRequest, bool) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, ok := DecodeAndPrepare[dongRequest](w, r, logger, r.Context(), "req-1")
		return w, req, ok
	}

	t.Run("decodes and normalizes", func(t *testing.T) {
		_, req, ok := decode(`{"dong":"  역삼1동 "}`)
		require.True(t, ok)
		assert.Equal(t, "역삼1동", req.Dong)
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		w, _, ok := decode(`{`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeError(t, w).Error)
	})

	t.Run("oversized body is named", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"dong":"`+strings.Repeat("x", 64)+`"}`))
		r.Body = http.MaxBytesReader(w, r.Body, 16)
		_, ok := DecodeAndPrepare[dongRequest](w, r, logger, r.Context(), "req-2")
		assert.False(t, ok)
		assert.Equal(t, "request body too large", decodeError(t, w).ErrorDescription)
	})

	t.Run("validation error keeps its code", func(t *testing.T) {
		w, _, ok := decode(`{"dong":" "}`)
		assert.False(t, ok)
		assert.Equal(t, "validation_error", decodeError(t, w).Error)
	})
}
