package integrity

import (
	"encoding/json"
	"fmt"
	"time"

	"fairdraw/pkg/digest"
)

const (
	ManifestVersion = 1
	ManifestType    = "AUDIT_JSON_INTEGRITY"
	HashAlgorithm   = "SHA-256"

	// TimestampLayout matches the millisecond UTC form used across artifacts.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Manifest commits to the exact exported text of the audit log and summary.
// Field order is the signed serialization order.
type Manifest struct {
	Version       int     `json:"version"`
	Type          string  `json:"type"`
	GeneratedAt   string  `json:"generatedAt"`
	HashAlgorithm string  `json:"hashAlgorithm"`
	Targets       Targets `json:"targets"`
}

type Targets struct {
	AuditJSONLSHA256       string `json:"audit_jsonl_sha256"`
	AuditSummaryJSONSHA256 string `json:"audit_summary_json_sha256"`
}

// BuildManifest hashes the UTF-8 text of both artifacts.
func BuildManifest(auditJSONL, auditSummary string, generatedAt time.Time) Manifest {
	return Manifest{
		Version:       ManifestVersion,
		Type:          ManifestType,
		GeneratedAt:   generatedAt.UTC().Format(TimestampLayout),
		HashAlgorithm: HashAlgorithm,
		Targets: Targets{
			AuditJSONLSHA256:       digest.SHA256Hex(auditJSONL),
			AuditSummaryJSONSHA256: digest.SHA256Hex(auditSummary),
		},
	}
}

// Bytes is the compact serialization that is both exported and signed.
func (m Manifest) Bytes() ([]byte, error) {
	b, err := digest.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return b, nil
}

// Matches reports whether both artifact texts hash to the declared digests.
func (m Manifest) Matches(auditJSONL, auditSummary string) bool {
	return digest.SHA256Hex(auditJSONL) == m.Targets.AuditJSONLSHA256 &&
		digest.SHA256Hex(auditSummary) == m.Targets.AuditSummaryJSONSHA256
}

// ParseManifest reads an exported manifest. Unknown fields are ignored and
// do not take part in signature verification.
func ParseManifest(text string) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
