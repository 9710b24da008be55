package integrity

import (
	"crypto/ecdsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

const (
	ReasonManifestUnparseable = "integrity_manifest.json could not be parsed"
	ReasonKeyUnparseable      = "integrity_public_key.jwk could not be parsed"
	ReasonDigestMismatch      = "manifest digests do not match the supplied audit.jsonl / audit_summary.json"
	ReasonSignatureInvalid    = "manifest signature verification failed"
	ReasonSignatureError      = "error while verifying manifest signature"
)

// BundleInput is the exported text of all five artifacts.
type BundleInput struct {
	ManifestText    string `json:"manifest"`
	SignatureBase64 string `json:"signature"`
	PublicKeyText   string `json:"publicKey"`
	AuditJSONL      string `json:"auditJsonl"`
	AuditSummary    string `json:"auditSummary"`
}

// Report keeps digest and signature outcomes independent.
type Report struct {
	HashOK      bool     `json:"hashOk"`
	SignatureOK bool     `json:"signatureOk"`
	Reasons     []string `json:"reasons"`
}

// OK reports whether both checks passed.
func (r Report) OK() bool {
	return r.HashOK && r.SignatureOK
}

// VerifyBundle checks the manifest digests against the supplied artifacts and
// the signature against the supplied key. Both checks always run once the
// manifest and key parse.
func VerifyBundle(in BundleInput) Report {
	m, err := ParseManifest(in.ManifestText)
	if err != nil {
		return Report{Reasons: []string{ReasonManifestUnparseable}}
	}
	pub, err := ParsePublicJWK(in.PublicKeyText)
	if err != nil {
		return Report{Reasons: []string{ReasonKeyUnparseable}}
	}

	report := Report{Reasons: []string{}}
	report.HashOK = m.Matches(in.AuditJSONL, in.AuditSummary)
	if !report.HashOK {
		report.Reasons = append(report.Reasons, ReasonDigestMismatch)
	}

	ok, err := VerifySignature(m, in.SignatureBase64, pub)
	switch {
	case err != nil:
		report.Reasons = append(report.Reasons, ReasonSignatureError)
	case !ok:
		report.Reasons = append(report.Reasons, ReasonSignatureInvalid)
	default:
		report.SignatureOK = true
	}
	return report
}

// VerifySignature checks a base64 signature over the manifest bytes. Raw
// r||s is the exported form; ASN.1 DER signatures are accepted too. A
// well-formed signature that does not verify returns (false, nil).
func VerifySignature(m Manifest, signatureBase64 string, pub *ecdsa.PublicKey) (bool, error) {
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureBase64))
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 2*coordinateSize {
		raw, derErr := derToRaw(sig)
		if derErr != nil {
			return false, derErr
		}
		sig = raw
	}

	data, err := m.Bytes()
	if err != nil {
		return false, err
	}
	err = jwt.SigningMethodES256.Verify(string(data), sig, pub)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, jwt.ErrECDSAVerification):
		return false, nil
	default:
		return false, err
	}
}

// derToRaw converts SEQUENCE { r INTEGER, s INTEGER } to fixed-width r||s.
func derToRaw(der []byte) ([]byte, error) {
	var (
		inner cryptobyte.String
		r, s  big.Int
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, cbasn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(&r) || !inner.ReadASN1Integer(&s) || !inner.Empty() {
		return nil, errors.New("signature is neither raw r||s nor ASN.1 DER")
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.BitLen() > 8*coordinateSize || s.BitLen() > 8*coordinateSize {
		return nil, errors.New("signature integers out of range")
	}
	out := make([]byte, 2*coordinateSize)
	r.FillBytes(out[:coordinateSize])
	s.FillBytes(out[coordinateSize:])
	return out, nil
}
