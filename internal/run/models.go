// Package run owns a draw from request to published artifacts: it locks the
// randomness, derives the seed, executes the draw, appends every milestone to
// the audit chain, seals the exports and records the chain entries.
package run

import (
	"strings"
	"time"

	"fairdraw/internal/lottery"
	"fairdraw/internal/randomness"
	dErrors "fairdraw/pkg/domain-errors"
)

// Artifact file names, as published.
const (
	FileAuditJSONL        = "audit.jsonl"
	FileAuditSummary      = "audit_summary.json"
	FileIntegrityManifest = "integrity_manifest.json"
	FileManifestSignature = "integrity_manifest.sig"
	FilePublicKeyJWK      = "integrity_public_key.jwk"
)

// Run is a completed, published draw.
type Run struct {
	RunID        string
	SeedHash     string
	FinalHash    string
	SelectedDong string
	Capacity     int
	Winners      []string
	Waitlist     []string
	Artifacts    Artifacts
	CreatedAt    time.Time
}

// Artifacts is the exact text of every exported file.
type Artifacts struct {
	AuditJSONL   string
	AuditSummary string
	Manifest     string
	Signature    string
	PublicKeyJWK string
}

// File returns the artifact stored under a published file name.
func (a Artifacts) File(name string) (string, bool) {
	switch name {
	case FileAuditJSONL:
		return a.AuditJSONL, true
	case FileAuditSummary:
		return a.AuditSummary, true
	case FileIntegrityManifest:
		return a.Manifest, true
	case FileManifestSignature:
		return a.Signature, true
	case FilePublicKeyJWK:
		return a.PublicKeyJWK, true
	}
	return "", false
}

// ExecuteRequest carries everything a draw commits to. Applicants includes
// invalid entries so they appear in the replay projection; only valid ones
// enter the draw.
type ExecuteRequest struct {
	// RunID is optional. Supplying the id of a run that failed quorum reuses
	// its locked randomness samples.
	RunID           string
	ExcelHash       string
	Config          lottery.LotteryConfig
	Applicants      []lottery.Applicant
	UploadedRows    int
	DuplicatePolicy string
	Overrides       map[randomness.MetricKind]string
}

// Validate checks the request before any randomness is fetched.
func (r ExecuteRequest) Validate() error {
	if strings.TrimSpace(r.ExcelHash) == "" {
		return dErrors.New(dErrors.CodeValidation, "document hash is required")
	}
	if err := r.Config.Validate(); err != nil {
		return err
	}
	for kind, value := range r.Overrides {
		if kind != randomness.MetricBTC && kind != randomness.MetricNIST {
			return dErrors.New(dErrors.CodeValidation, "unknown randomness metric: "+string(kind))
		}
		if strings.TrimSpace(value) == "" {
			return dErrors.New(dErrors.CodeValidation, "override for "+string(kind)+" is empty")
		}
	}
	return nil
}
