package ingest

import (
	"strconv"

	"fairdraw/internal/lottery"
	dErrors "fairdraw/pkg/domain-errors"
)

// Prepared is an upload ready for a draw. Applicants keeps sheet order and
// includes invalid rows; Masked lines up with Applicants by index.
type Prepared struct {
	FileHash   string
	Policy     DuplicatePolicy
	Applicants []lottery.Applicant
	Masked     []MaskedRow
	Stats      Stats
}

type Stats struct {
	UploadedRows      int
	DuplicatesDropped int
	ValidApplicants   int
	InvalidApplicants int
	LocalMatches      int
}

// Valid returns the applicants that enter the draw.
func (p *Prepared) Valid() []lottery.Applicant {
	out := make([]lottery.Applicant, 0, p.Stats.ValidApplicants)
	for _, a := range p.Applicants {
		if a.Valid {
			out = append(out, a)
		}
	}
	return out
}

// Prepare applies the duplicate policy, then pseudonymises, validates and
// classifies every surviving row. Two valid rows sharing an anon id fail
// with CodeConflict; choosing latest or earliest resolves it.
func Prepare(wb *Workbook, selectedDong string, zips ZipMap, policy DuplicatePolicy) (*Prepared, error) {
	if wb == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "workbook is required")
	}

	rows := ApplyDuplicatePolicy(wb.Rows, policy)
	p := &Prepared{
		FileHash:   wb.FileHash,
		Policy:     policy,
		Applicants: make([]lottery.Applicant, 0, len(rows)),
		Masked:     make([]MaskedRow, 0, len(rows)),
		Stats: Stats{
			UploadedRows:      len(wb.Rows),
			DuplicatesDropped: len(wb.Rows) - len(rows),
		},
	}

	seen := make(map[string]int, len(rows))
	for _, row := range rows {
		anonID := AnonID(wb.FileHash, row)
		a, err := BuildApplicant(row, anonID, selectedDong, zips)
		if err != nil {
			return nil, err
		}
		if a.Valid {
			if first, dup := seen[anonID]; dup {
				return nil, dErrors.New(dErrors.CodeConflict,
					"rows "+strconv.Itoa(first)+" and "+strconv.Itoa(row.RowIndex)+" describe the same applicant; choose duplicate policy latest or earliest")
			}
			seen[anonID] = row.RowIndex
		}

		p.Applicants = append(p.Applicants, a)
		p.Masked = append(p.Masked, Mask(anonID, row))

		if a.Valid {
			p.Stats.ValidApplicants++
		} else {
			p.Stats.InvalidApplicants++
		}
		if a.SelectedDongMatch {
			p.Stats.LocalMatches++
		}
	}
	return p, nil
}
