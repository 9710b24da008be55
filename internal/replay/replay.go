// Package replay independently re-derives a published draw from its summary
// and audit chain and reports every disagreement it finds.
package replay

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"fairdraw/internal/audit"
	"fairdraw/internal/lottery"
)

const (
	ReasonFinalHashMismatch = "final hash mismatch with summary"
	ReasonSeedMismatch      = "seed hash mismatch"
	ReasonWinnersMismatch   = "winner ordering mismatch"
	ReasonWaitlistMismatch  = "waitlist ordering mismatch"
	ReasonOrderingMismatch  = "shuffle ordering mismatch"
	ReasonPhaseMismatch     = "step winner split mismatch"
	ReasonQuotaMismatch     = "guarantee quota mismatch"
	ReasonDrawEntryMismatch = "draw_completed entry disagrees with replay"
)

// Result is the outcome of a full replay. Reasons is exhaustive.
type Result struct {
	ChainOK  bool     `json:"chainOk"`
	ReplayOK bool     `json:"replayOk"`
	Reasons  []string `json:"reasons"`
	Replayed Replayed `json:"replayResult"`
}

// Replayed is the recomputed draw, the only input individual lookups trust.
type Replayed struct {
	Applicants []audit.ReplayApplicant `json:"applicants"`
	Winners    []string                `json:"winners"`
	Waitlist   []string                `json:"waitlist"`
}

// VerifyAuditAndReplay verifies the chain against the summary's final hash,
// rebuilds the valid applicants from the replay projection, re-derives the
// seed and re-runs the draw. Every mismatch is collected.
func VerifyAuditAndReplay(summary *audit.Summary, events []audit.Event) (*Result, error) {
	if summary == nil {
		return nil, errors.New("summary is required")
	}

	var reasons []string
	chain := audit.VerifyChain(events)
	if !chain.OK {
		reasons = append(reasons, chain.Reason)
	}
	if chain.FinalHash != "" && chain.FinalHash != summary.FinalHash {
		reasons = append(reasons, ReasonFinalHashMismatch)
	}

	replayed, draw, replayReasons := replayDraw(summary)
	reasons = append(reasons, replayReasons...)
	if draw != nil && !drawEntryMatches(events, draw) {
		reasons = append(reasons, ReasonDrawEntryMismatch)
	}

	if reasons == nil {
		reasons = []string{}
	}
	return &Result{
		ChainOK:  chain.OK,
		ReplayOK: len(reasons) == 0,
		Reasons:  reasons,
		Replayed: replayed,
	}, nil
}

// VerifyArtifacts runs VerifyAuditAndReplay over exported text. Parse failures
// become reasons instead of errors.
func VerifyArtifacts(summaryText, auditJSONL string) *Result {
	summary, err := audit.ParseSummary(summaryText)
	if err != nil {
		return &Result{Reasons: []string{fmt.Sprintf("audit_summary.json could not be parsed: %v", err)}}
	}

	events, err := audit.ParseJSONLines(auditJSONL)
	if err != nil {
		replayed, _, reasons := replayDraw(summary)
		reasons = append([]string{err.Error()}, reasons...)
		return &Result{Reasons: reasons, Replayed: replayed}
	}

	// summary is non-nil here, so no error is possible
	res, _ := VerifyAuditAndReplay(summary, events)
	return res
}

func replayDraw(summary *audit.Summary) (Replayed, *lottery.DrawResult, []string) {
	replayed := Replayed{
		Applicants: summary.ApplicantsForReplay,
		Winners:    []string{},
		Waitlist:   []string{},
	}
	if replayed.Applicants == nil {
		replayed.Applicants = []audit.ReplayApplicant{}
	}

	valid := make([]lottery.Applicant, 0, len(summary.ApplicantsForReplay))
	for _, a := range summary.ApplicantsForReplay {
		if !a.Valid {
			continue
		}
		valid = append(valid, lottery.Applicant{
			AnonID:               a.AnonID,
			MemberID:             a.MemberID,
			Valid:                true,
			InvalidReasons:       []string{},
			SelectedDongMatch:    a.SelectedDongMatch,
			ClassificationReason: a.ClassificationReason,
			ClassificationSource: lottery.SourceUnknown,
		})
	}

	cfg := summary.Config.LotteryConfig()
	draw, err := lottery.RunLottery(valid, cfg, lottery.SeedMaterial{
		ExcelHash:          summary.ExcelHash,
		Config:             cfg,
		FinalBTCValueUsed:  summary.Randomness.BTC.FinalValue,
		FinalNISTValueUsed: summary.Randomness.BeaconValue(),
		RunID:              summary.RunID,
		RunSaltHex:         summary.RunSaltHex,
	})
	if err != nil {
		return replayed, nil, []string{"replay draw failed: " + err.Error()}
	}

	replayed.Winners = draw.WinnerIDs()
	replayed.Waitlist = draw.WaitlistIDs()

	var reasons []string
	if draw.SeedHash != summary.SeedHash {
		reasons = append(reasons, ReasonSeedMismatch)
	}
	if !slices.Equal(replayed.Winners, summary.DrawOutput.Winners) {
		reasons = append(reasons, ReasonWinnersMismatch)
	}
	if !slices.Equal(replayed.Waitlist, summary.DrawOutput.Waitlist) {
		reasons = append(reasons, ReasonWaitlistMismatch)
	}
	if !slices.Equal(draw.Ordering, summary.DrawOutput.Ordering) {
		reasons = append(reasons, ReasonOrderingMismatch)
	}
	if !slices.Equal(draw.Step1WinnerAnonIDs, summary.DrawOutput.Step1) ||
		!slices.Equal(draw.Step2WinnerAnonIDs, summary.DrawOutput.Step2) {
		reasons = append(reasons, ReasonPhaseMismatch)
	}
	if draw.GuaranteeQuota != summary.Config.GuaranteeQuota {
		reasons = append(reasons, ReasonQuotaMismatch)
	}
	return replayed, draw, reasons
}

// drawEntryMatches compares the last draw_completed entry with the replayed
// draw. A chain without one has nothing to compare.
func drawEntryMatches(events []audit.Event, draw *lottery.DrawResult) bool {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].EventType != audit.EventDrawCompleted {
			continue
		}
		var recorded audit.DrawCompleted
		if err := events[i].Decode(&recorded); err != nil {
			return false
		}
		return recorded.GuaranteeQuota == draw.GuaranteeQuota &&
			slices.Equal(recorded.Winners, draw.WinnerIDs()) &&
			slices.Equal(recorded.Waitlist, draw.WaitlistIDs()) &&
			slices.Equal(recorded.Step1, draw.Step1WinnerAnonIDs) &&
			slices.Equal(recorded.Step2, draw.Step2WinnerAnonIDs) &&
			slices.Equal(recorded.Ordering, draw.Ordering)
	}
	return true
}

// Status is an individual's outcome in the replayed draw.
type Status string

const (
	StatusWinner      Status = "WINNER"
	StatusWaitlist    Status = "WAITLIST"
	StatusNotSelected Status = "NOT_SELECTED"
	StatusNotFound    Status = "NOT_FOUND"
)

type IndividualResult struct {
	Status       Status                 `json:"status"`
	WaitlistRank int                    `json:"waitlistRank,omitempty"`
	Applicant    *audit.ReplayApplicant `json:"applicant,omitempty"`
}

// VerifyIndividual looks an applicant up by anon id or member id and reports
// their status from the replayed draw only.
func VerifyIndividual(lookup string, replayed Replayed) IndividualResult {
	lookup = strings.TrimSpace(lookup)
	if lookup == "" {
		return IndividualResult{Status: StatusNotFound}
	}

	idx := slices.IndexFunc(replayed.Applicants, func(a audit.ReplayApplicant) bool {
		return a.AnonID == lookup || a.MemberID == lookup
	})
	if idx < 0 {
		return IndividualResult{Status: StatusNotFound}
	}
	applicant := replayed.Applicants[idx]

	if slices.Contains(replayed.Winners, applicant.AnonID) {
		return IndividualResult{Status: StatusWinner, Applicant: &applicant}
	}
	if rank := slices.Index(replayed.Waitlist, applicant.AnonID); rank >= 0 {
		return IndividualResult{Status: StatusWaitlist, WaitlistRank: rank + 1, Applicant: &applicant}
	}
	return IndividualResult{Status: StatusNotSelected, Applicant: &applicant}
}
