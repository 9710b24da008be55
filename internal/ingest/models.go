// Package ingest turns an uploaded applicant spreadsheet into draw-ready
// applicants: header mapping, validation, zip and address classification,
// duplicate handling and pseudonymisation. Personal fields stay in RawRow and
// never reach lottery.Applicant.
package ingest

import (
	"strings"

	dErrors "fairdraw/pkg/domain-errors"
)

// RawRow is one spreadsheet row with its 1-based sheet row number.
type RawRow struct {
	RowIndex         int
	No               string
	Name             string
	Gender           string
	BirthDate        string
	Age              string
	InternationalAge string
	DiscountTarget   string
	Fee              string
	MemberID         string
	Phone            string
	Mobile           string
	Email            string
	Zip              string
	Address          string
	Occupation       string
	Workplace        string
	Memo             string
	ApplyMethod      string
	ApplyStatus      string
	ApplyType        string
	RegisteredAt     string
}

// ZipRecord is the administrative district a postal code belongs to.
type ZipRecord struct {
	Zip       string
	Sido      string
	Sigungu   string
	AdminDong string
}

// ZipMap looks up ZipRecords by five-digit postal code.
type ZipMap map[string]ZipRecord

// DuplicatePolicy decides which row survives when one person applied more
// than once.
type DuplicatePolicy string

const (
	DuplicateLatest   DuplicatePolicy = "latest"
	DuplicateEarliest DuplicatePolicy = "earliest"
	DuplicateKeepAll  DuplicatePolicy = "keep-all"
)

// ParseDuplicatePolicy validates external input. Empty means keep-all.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.TrimSpace(s)); p {
	case "":
		return DuplicateKeepAll, nil
	case DuplicateLatest, DuplicateEarliest, DuplicateKeepAll:
		return p, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "duplicate policy must be one of latest, earliest, keep-all")
	}
}
