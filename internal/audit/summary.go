package audit

import (
	"encoding/json"
	"fmt"

	"fairdraw/internal/lottery"
	"fairdraw/internal/randomness"
	"fairdraw/pkg/digest"
)

// Summary is the published snapshot of one run. It carries only pseudonymous
// per-applicant data.
type Summary struct {
	AppVersion          string            `json:"appVersion"`
	ExcelHash           string            `json:"excelHash"`
	RunID               string            `json:"runId"`
	RunSaltHex          string            `json:"runSaltHex"`
	SeedHash            string            `json:"seedHash"`
	FinalHash           string            `json:"finalHash"`
	GeneratedAt         string            `json:"generatedAt"`
	Config              SummaryConfig     `json:"config"`
	Randomness          SummaryRandomness `json:"randomness"`
	Totals              Totals            `json:"totals"`
	ApplicantsForReplay []ReplayApplicant `json:"applicantsForReplay"`
	DrawOutput          DrawOutput        `json:"drawOutput"`
}

type SummaryConfig struct {
	SelectedDong   string               `json:"selectedDong"`
	Capacity       int                  `json:"capacity"`
	RoundingMode   lottery.RoundingMode `json:"roundingMode"`
	GuaranteeQuota int                  `json:"guaranteeQuota"`
}

// LotteryConfig drops the derived quota.
func (c SummaryConfig) LotteryConfig() lottery.LotteryConfig {
	return lottery.LotteryConfig{
		SelectedDong: c.SelectedDong,
		Capacity:     c.Capacity,
		RoundingMode: c.RoundingMode,
	}
}

// SummaryRandomness holds the committed metrics. Nasdaq is the name older
// runs used for the beacon metric and is only read, never written.
type SummaryRandomness struct {
	BTC    randomness.Metric  `json:"btc"`
	NIST   *randomness.Metric `json:"nist,omitempty"`
	Nasdaq *randomness.Metric `json:"nasdaq,omitempty"`
}

// BeaconValue returns the committed beacon value, falling back to the legacy
// field when the current one is absent.
func (r SummaryRandomness) BeaconValue() string {
	if r.NIST != nil {
		return r.NIST.FinalValue
	}
	if r.Nasdaq != nil {
		return r.Nasdaq.FinalValue
	}
	return ""
}

type Totals struct {
	UploadedRows      int `json:"uploadedRows"`
	ValidApplicants   int `json:"validApplicants"`
	InvalidApplicants int `json:"invalidApplicants"`
	Winners           int `json:"winners"`
	Waitlist          int `json:"waitlist"`
}

// ReplayApplicant is the per-applicant projection needed to re-run a draw.
type ReplayApplicant struct {
	AnonID               string   `json:"anonId"`
	MemberID             string   `json:"memberId"`
	Valid                bool     `json:"valid"`
	SelectedDongMatch    bool     `json:"selectedDongMatch"`
	InvalidReasons       []string `json:"invalidReasons"`
	ClassificationReason string   `json:"classificationReason"`
}

// ReplayApplicantFrom projects an applicant for publication.
func ReplayApplicantFrom(a lottery.Applicant) ReplayApplicant {
	reasons := a.InvalidReasons
	if reasons == nil {
		reasons = []string{}
	}
	return ReplayApplicant{
		AnonID:               a.AnonID,
		MemberID:             a.MemberID,
		Valid:                a.Valid,
		SelectedDongMatch:    a.SelectedDongMatch,
		InvalidReasons:       reasons,
		ClassificationReason: a.ClassificationReason,
	}
}

type DrawOutput struct {
	Winners  []string `json:"winners"`
	Waitlist []string `json:"waitlist"`
	Step1    []string `json:"step1"`
	Step2    []string `json:"step2"`
	Ordering []string `json:"ordering"`
}

// DrawOutputFrom copies a draw result into its published form.
func DrawOutputFrom(r *lottery.DrawResult) DrawOutput {
	return DrawOutput{
		Winners:  r.WinnerIDs(),
		Waitlist: r.WaitlistIDs(),
		Step1:    r.Step1WinnerAnonIDs,
		Step2:    r.Step2WinnerAnonIDs,
		Ordering: r.Ordering,
	}
}

// MarshalSummary renders the summary exactly as published: two-space
// indentation, no trailing newline. The manifest hashes these bytes.
func MarshalSummary(s *Summary) (string, error) {
	b, err := digest.MarshalIndent(s)
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	return string(b), nil
}

// ParseSummary reads a published summary.
func ParseSummary(text string) (*Summary, error) {
	var s Summary
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
