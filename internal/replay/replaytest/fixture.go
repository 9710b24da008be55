// Package replaytest builds small, internally consistent published runs for
// verification tests.
package replaytest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fairdraw/internal/audit"
	"fairdraw/internal/lottery"
	"fairdraw/internal/randomness"
)

// Run is one published draw in both parsed and exported form.
type Run struct {
	Summary     *audit.Summary
	Events      []audit.Event
	SummaryText string
	AuditJSONL  string
}

// Publish performs a ten-applicant draw for capacity four and records it the
// way a run does. Applicant 9 is invalid.
func Publish(t *testing.T) Run {
	t.Helper()

	cfg := lottery.LotteryConfig{SelectedDong: "역삼1동", Capacity: 4, RoundingMode: lottery.RoundingFloor}
	var all []lottery.Applicant
	for i := 0; i < 10; i++ {
		a, err := lottery.NewApplicant(fmt.Sprintf("anon-%02d", i), fmt.Sprintf("member-%02d", i), i != 9, nil, i%3 == 0, "zip:06234 -> 서울 강남구 역삼1동", lottery.SourceZip)
		require.NoError(t, err)
		all = append(all, a)
	}
	var valid []lottery.Applicant
	for _, a := range all {
		if a.Valid {
			valid = append(valid, a)
		}
	}

	material := lottery.SeedMaterial{
		ExcelHash:          "9f2c",
		Config:             cfg,
		FinalBTCValueUsed:  "97012.35",
		FinalNISTValueUsed: "1234567890123",
		RunID:              "run-fixture",
		RunSaltHex:         "00ff00ff",
	}
	draw, err := lottery.RunLottery(valid, cfg, material)
	require.NoError(t, err)

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	chain := audit.NewChain(audit.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	_, err = chain.Append(audit.EventRunStarted, audit.RunStarted{RunID: material.RunID, RunSaltHex: material.RunSaltHex, ExcelHash: material.ExcelHash, Config: cfg})
	require.NoError(t, err)
	_, err = chain.Append(audit.EventSeedDerived, audit.SeedDerived{SeedParts: lottery.CanonicalSeedParts(material), SeedHash: draw.SeedHash})
	require.NoError(t, err)
	_, err = chain.Append(audit.EventDrawCompleted, audit.DrawCompleted{
		GuaranteeQuota: draw.GuaranteeQuota,
		Winners:        draw.WinnerIDs(),
		Waitlist:       draw.WaitlistIDs(),
		Step1:          draw.Step1WinnerAnonIDs,
		Step2:          draw.Step2WinnerAnonIDs,
		Ordering:       draw.Ordering,
	})
	require.NoError(t, err)

	projection := make([]audit.ReplayApplicant, len(all))
	for i, a := range all {
		projection[i] = audit.ReplayApplicantFrom(a)
	}

	summary := &audit.Summary{
		AppVersion: "1.0.0",
		ExcelHash:  material.ExcelHash,
		RunID:      material.RunID,
		RunSaltHex: material.RunSaltHex,
		SeedHash:   draw.SeedHash,
		FinalHash:  chain.FinalHash(),
		Config: audit.SummaryConfig{
			SelectedDong:   cfg.SelectedDong,
			Capacity:       cfg.Capacity,
			RoundingMode:   cfg.RoundingMode,
			GuaranteeQuota: draw.GuaranteeQuota,
		},
		Randomness: audit.SummaryRandomness{
			BTC:  randomness.Metric{Metric: randomness.MetricBTC, FinalValue: material.FinalBTCValueUsed, Samples: []randomness.Sample{}},
			NIST: &randomness.Metric{Metric: randomness.MetricNIST, FinalValue: material.FinalNISTValueUsed, Samples: []randomness.Sample{}},
		},
		ApplicantsForReplay: projection,
		DrawOutput:          audit.DrawOutputFrom(draw),
	}
	events := chain.Events()
	summaryText, err := audit.MarshalSummary(summary)
	require.NoError(t, err)
	jsonl, err := audit.ToJSONLines(events)
	require.NoError(t, err)
	return Run{Summary: summary, Events: events, SummaryText: summaryText, AuditJSONL: jsonl}
}
