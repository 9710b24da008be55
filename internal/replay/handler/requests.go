package handler

import (
	"strings"

	"fairdraw/internal/integrity"
	dErrors "fairdraw/pkg/domain-errors"
)

// ReplayRequest is the body of POST /verify/replay.
type ReplayRequest struct {
	Summary    string `json:"summary"`
	AuditJSONL string `json:"auditJsonl"`
}

// Validate implements httputil.Validatable.
func (r *ReplayRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Summary) == "" {
		return dErrors.New(dErrors.CodeValidation, "summary is required")
	}
	if strings.TrimSpace(r.AuditJSONL) == "" {
		return dErrors.New(dErrors.CodeValidation, "auditJsonl is required")
	}
	return nil
}

// IndividualRequest is the body of POST /verify/individual.
type IndividualRequest struct {
	ReplayRequest
	Lookup string `json:"lookup"`
}

func (r *IndividualRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := r.ReplayRequest.Validate(); err != nil {
		return err
	}
	r.Lookup = strings.TrimSpace(r.Lookup)
	if r.Lookup == "" {
		return dErrors.New(dErrors.CodeValidation, "lookup is required")
	}
	if len(r.Lookup) > 256 {
		return dErrors.New(dErrors.CodeValidation, "lookup must be at most 256 characters")
	}
	return nil
}

// IntegrityRequest is the body of POST /verify/integrity.
type IntegrityRequest struct {
	integrity.BundleInput
}

func (r *IntegrityRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	switch {
	case strings.TrimSpace(r.ManifestText) == "":
		return dErrors.New(dErrors.CodeValidation, "manifest is required")
	case strings.TrimSpace(r.SignatureBase64) == "":
		return dErrors.New(dErrors.CodeValidation, "signature is required")
	case strings.TrimSpace(r.PublicKeyText) == "":
		return dErrors.New(dErrors.CodeValidation, "publicKey is required")
	}
	return nil
}
