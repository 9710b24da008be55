package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeWalksWrappedChain(t *testing.T) {
	inner := New(CodeConflict, "run exists")
	outer := Wrap(inner, CodeInternal, "save run")

	assert.True(t, HasCode(outer, CodeConflict))
	assert.True(t, HasCode(outer, CodeInternal))
	assert.False(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestIsMatchesOutermostCode(t *testing.T) {
	err := fmt.Errorf("context: %w", New(CodeInsufficientRandomness, "btc quorum not reached"))

	assert.True(t, Is(err, CodeInsufficientRandomness))
	assert.False(t, Is(Wrap(err, CodeInternal, "draw"), CodeInsufficientRandomness))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:             http.StatusBadRequest,
		CodeValidation:             http.StatusBadRequest,
		CodeNotFound:               http.StatusNotFound,
		CodeInsufficientRandomness: http.StatusConflict,
		CodeInvariantViolation:     http.StatusUnprocessableEntity,
		CodeInternal:               http.StatusInternalServerError,
		Code("unknown"):            http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
