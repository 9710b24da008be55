package lottery

import (
	"strings"

	dErrors "fairdraw/pkg/domain-errors"
)

// RoundingMode selects how the guarantee quota rounds capacity/2.
// Construct via ParseRoundingMode at trust boundaries.
type RoundingMode string

const (
	RoundingFloor RoundingMode = "floor"
	RoundingCeil  RoundingMode = "ceil"
	RoundingRound RoundingMode = "round"
)

var validRoundingModes = map[RoundingMode]bool{
	RoundingFloor: true,
	RoundingCeil:  true,
	RoundingRound: true,
}

// ParseRoundingMode validates external input.
func ParseRoundingMode(s string) (RoundingMode, error) {
	m := RoundingMode(strings.TrimSpace(s))
	if m == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "rounding mode cannot be empty")
	}
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "rounding mode must be one of floor, ceil, round")
	}
	return m, nil
}

func (m RoundingMode) IsValid() bool {
	return validRoundingModes[m]
}

func (m RoundingMode) String() string {
	return string(m)
}

// ClassificationSource records which evidence decided an applicant's
// local-priority membership. It is a closed set.
type ClassificationSource string

const (
	SourceZip     ClassificationSource = "zip"
	SourceAddress ClassificationSource = "address"
	SourceUnknown ClassificationSource = "unknown"
)

var validClassificationSources = map[ClassificationSource]bool{
	SourceZip:     true,
	SourceAddress: true,
	SourceUnknown: true,
}

// ParseClassificationSource validates external input.
func ParseClassificationSource(s string) (ClassificationSource, error) {
	src := ClassificationSource(strings.TrimSpace(s))
	if !src.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "classification source must be one of zip, address, unknown")
	}
	return src, nil
}

func (s ClassificationSource) IsValid() bool {
	return validClassificationSources[s]
}

// Applicant is the pseudonymous view of one entry that the draw operates on.
// Personal fields never reach this type; ingestion keeps them separately.
type Applicant struct {
	AnonID               string
	MemberID             string
	Valid                bool
	InvalidReasons       []string
	SelectedDongMatch    bool
	ClassificationReason string
	ClassificationSource ClassificationSource
}

// NewApplicant enforces that an invalid applicant never counts toward the
// local-priority subgroup.
func NewApplicant(anonID, memberID string, valid bool, reasons []string, match bool, reason string, source ClassificationSource) (Applicant, error) {
	if strings.TrimSpace(anonID) == "" {
		return Applicant{}, dErrors.New(dErrors.CodeInvariantViolation, "anon id is required")
	}
	if !source.IsValid() {
		return Applicant{}, dErrors.New(dErrors.CodeInvariantViolation, "invalid classification source")
	}
	if reasons == nil {
		reasons = []string{}
	}
	return Applicant{
		AnonID:               anonID,
		MemberID:             memberID,
		Valid:                valid,
		InvalidReasons:       reasons,
		SelectedDongMatch:    valid && match,
		ClassificationReason: reason,
		ClassificationSource: source,
	}, nil
}

// LotteryConfig is the operator-chosen draw configuration.
type LotteryConfig struct {
	SelectedDong string       `json:"selectedDong"`
	Capacity     int          `json:"capacity"`
	RoundingMode RoundingMode `json:"roundingMode"`
}

// Validate checks the config before it is committed into a seed.
func (c LotteryConfig) Validate() error {
	if strings.TrimSpace(c.SelectedDong) == "" {
		return dErrors.New(dErrors.CodeValidation, "selected dong is required")
	}
	if c.Capacity < 1 {
		return dErrors.New(dErrors.CodeValidation, "capacity must be positive")
	}
	if !c.RoundingMode.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid rounding mode")
	}
	return nil
}

// SeedMaterial is every committed input that feeds the seed hash.
type SeedMaterial struct {
	ExcelHash          string
	Config             LotteryConfig
	FinalBTCValueUsed  string
	FinalNISTValueUsed string
	RunID              string
	RunSaltHex         string
}

// DrawResult is the outcome of one draw, including the full shuffle ordering.
type DrawResult struct {
	RunID              string
	RunSaltHex         string
	SeedHash           string
	GuaranteeQuota     int
	Winners            []Applicant
	Waitlist           []Applicant
	Ordering           []string
	Step1WinnerAnonIDs []string
	Step2WinnerAnonIDs []string
}

// WinnerIDs returns winner anon ids in admission order.
func (r *DrawResult) WinnerIDs() []string {
	return anonIDs(r.Winners)
}

// WaitlistIDs returns waitlist anon ids in rank order.
func (r *DrawResult) WaitlistIDs() []string {
	return anonIDs(r.Waitlist)
}

func anonIDs(as []Applicant) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.AnonID
	}
	return out
}
