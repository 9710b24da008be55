package replay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairdraw/internal/audit"
	"fairdraw/internal/replay/replaytest"
)

func TestVerifyAuditAndReplay(t *testing.T) {
	t.Run("untampered run replays", func(t *testing.T) {
		run := replaytest.Publish(t)
		res, err := VerifyAuditAndReplay(run.Summary, run.Events)
		require.NoError(t, err)
		assert.True(t, res.ChainOK)
		assert.True(t, res.ReplayOK)
		assert.Empty(t, res.Reasons)
		assert.Equal(t, run.Summary.DrawOutput.Winners, res.Replayed.Winners)
		assert.Len(t, res.Replayed.Winners, 4)
		assert.Len(t, res.Replayed.Waitlist, 5)
	})

	t.Run("nil summary is a programmer error", func(t *testing.T) {
		_, err := VerifyAuditAndReplay(nil, nil)
		assert.Error(t, err)
	})

	tamper := []struct {
		name    string
		mutate  func(*testing.T, *replaytest.Run)
		chainOK bool
		reasons []string
	}{
		{
			name:    "swapped winners",
			mutate:  func(_ *testing.T, r *replaytest.Run) { w := r.Summary.DrawOutput.Winners; w[0], w[1] = w[1], w[0] },
			chainOK: true,
			reasons: []string{ReasonWinnersMismatch},
		},
		{
			name: "reordered waitlist",
			mutate: func(_ *testing.T, r *replaytest.Run) {
				w := r.Summary.DrawOutput.Waitlist
				w[0], w[len(w)-1] = w[len(w)-1], w[0]
			},
			chainOK: true,
			reasons: []string{ReasonWaitlistMismatch},
		},
		{
			name:    "reordered shuffle",
			mutate:  func(_ *testing.T, r *replaytest.Run) { o := r.Summary.DrawOutput.Ordering; o[0], o[1] = o[1], o[0] },
			chainOK: true,
			reasons: []string{ReasonOrderingMismatch},
		},
		{
			name: "winner moved from step 1 to step 2",
			mutate: func(_ *testing.T, r *replaytest.Run) {
				d := &r.Summary.DrawOutput
				d.Step2 = append([]string{d.Step1[0]}, d.Step2...)
				d.Step1 = d.Step1[1:]
			},
			chainOK: true,
			reasons: []string{ReasonPhaseMismatch},
		},
		{
			name:    "step 2 entry replaced",
			mutate:  func(_ *testing.T, r *replaytest.Run) { r.Summary.DrawOutput.Step2[0] = "anon-99" },
			chainOK: true,
			reasons: []string{ReasonPhaseMismatch},
		},
		{
			name:    "edited guarantee quota",
			mutate:  func(_ *testing.T, r *replaytest.Run) { r.Summary.Config.GuaranteeQuota++ },
			chainOK: true,
			reasons: []string{ReasonQuotaMismatch},
		},
		{
			name:    "edited randomness value",
			mutate:  func(_ *testing.T, r *replaytest.Run) { r.Summary.Randomness.BTC.FinalValue = "97012.36" },
			chainOK: true,
			reasons: []string{ReasonSeedMismatch},
		},
		{
			name:    "edited seed hash only",
			mutate:  func(_ *testing.T, r *replaytest.Run) { r.Summary.SeedHash = "00" },
			chainOK: true,
			reasons: []string{ReasonSeedMismatch},
		},
		{
			name:    "final hash disagrees with chain",
			mutate:  func(_ *testing.T, r *replaytest.Run) { r.Summary.FinalHash = "deadbeef" },
			chainOK: true,
			reasons: []string{ReasonFinalHashMismatch},
		},
		{
			name: "tampered chain payload",
			mutate: func(_ *testing.T, r *replaytest.Run) {
				r.Events[2].Data = json.RawMessage(`{"guaranteeQuota":3}`)
			},
			chainOK: false,
			reasons: []string{"entry_hash mismatch at index 2", ReasonDrawEntryMismatch},
		},
		{
			name: "rehashed chain with a forged draw entry",
			mutate: func(t *testing.T, r *replaytest.Run) {
				var recorded audit.DrawCompleted
				require.NoError(t, r.Events[2].Decode(&recorded))
				recorded.Ordering[0], recorded.Ordering[1] = recorded.Ordering[1], recorded.Ordering[0]
				r.Events = rechain(t, r.Events, 2, recorded)
				r.Summary.FinalHash = r.Events[len(r.Events)-1].EntryHash
			},
			chainOK: true,
			reasons: []string{ReasonDrawEntryMismatch},
		},
	}
	require.Len(t, replaytest.Publish(t).Events, 3)
	for _, tt := range tamper {
		t.Run(tt.name, func(t *testing.T) {
			run := replaytest.Publish(t)
			tt.mutate(t, &run)

			res, err := VerifyAuditAndReplay(run.Summary, run.Events)
			require.NoError(t, err)
			assert.Equal(t, tt.chainOK, res.ChainOK)
			assert.False(t, res.ReplayOK)
			assert.Subset(t, res.Reasons, tt.reasons)
			assert.Equal(t, tt.reasons[0], res.Reasons[0])
		})
	}

	t.Run("zero capacity summary does not replay", func(t *testing.T) {
		run := replaytest.Publish(t)
		run.Summary.Config.Capacity = 0

		res, err := VerifyAuditAndReplay(run.Summary, run.Events)
		require.NoError(t, err)
		assert.False(t, res.ReplayOK)
		require.NotEmpty(t, res.Reasons)
		assert.Contains(t, res.Reasons[0], "capacity must be positive")
	})

	t.Run("legacy beacon key replays", func(t *testing.T) {
		run := replaytest.Publish(t)
		run.Summary.Randomness.Nasdaq = run.Summary.Randomness.NIST
		run.Summary.Randomness.NIST = nil

		res, err := VerifyAuditAndReplay(run.Summary, run.Events)
		require.NoError(t, err)
		assert.True(t, res.ReplayOK)
	})
}

func TestVerifyArtifacts(t *testing.T) {
	run := replaytest.Publish(t)
	summaryText, jsonl := run.SummaryText, run.AuditJSONL

	t.Run("exported text replays", func(t *testing.T) {
		res := VerifyArtifacts(summaryText, jsonl)
		assert.True(t, res.ChainOK)
		assert.True(t, res.ReplayOK)
	})

	t.Run("malformed log line is localized", func(t *testing.T) {
		res := VerifyArtifacts(summaryText, jsonl+"\n{oops")
		assert.False(t, res.ChainOK)
		assert.False(t, res.ReplayOK)
		require.NotEmpty(t, res.Reasons)
		assert.Contains(t, res.Reasons[0], "line 4")
		assert.NotEmpty(t, res.Replayed.Winners, "the draw is still replayed from the summary")
	})

	t.Run("unparseable summary", func(t *testing.T) {
		res := VerifyArtifacts("{", jsonl)
		assert.False(t, res.ReplayOK)
		assert.Len(t, res.Reasons, 1)
	})
}

func TestVerifyIndividual(t *testing.T) {
	run := replaytest.Publish(t)
	res, err := VerifyAuditAndReplay(run.Summary, run.Events)
	require.NoError(t, err)
	replayed := res.Replayed

	winner := replayed.Winners[0]
	got := VerifyIndividual("  "+winner+" ", replayed)
	assert.Equal(t, StatusWinner, got.Status)
	assert.Equal(t, winner, got.Applicant.AnonID)

	second := replayed.Waitlist[1]
	got = VerifyIndividual(second, replayed)
	assert.Equal(t, StatusWaitlist, got.Status)
	assert.Equal(t, 2, got.WaitlistRank)

	t.Run("member id lookup", func(t *testing.T) {
		got := VerifyIndividual("member-09", replayed)
		assert.Equal(t, StatusNotSelected, got.Status, "invalid applicants never enter the draw")
		assert.False(t, got.Applicant.Valid)
	})

	assert.Equal(t, StatusNotFound, VerifyIndividual("nobody", replayed).Status)
	assert.Equal(t, StatusNotFound, VerifyIndividual("   ", replayed).Status)
}

func TestIndividualIgnoresPublishedWinners(t *testing.T) {
	run := replaytest.Publish(t)
	loser := run.Summary.DrawOutput.Waitlist[0]
	run.Summary.DrawOutput.Winners[0] = loser

	res, err := VerifyAuditAndReplay(run.Summary, run.Events)
	require.NoError(t, err)
	assert.False(t, res.ReplayOK)
	assert.Equal(t, StatusWaitlist, VerifyIndividual(loser, res.Replayed).Status)
}

// rechain replaces the payload at index i and recomputes every hash from
// there, producing a chain that verifies on its own.
func rechain(t *testing.T, events []audit.Event, i int, payload any) []audit.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	out := append([]audit.Event(nil), events...)
	out[i].Data = raw
	for j := i; j < len(out); j++ {
		if j > 0 {
			out[j].PrevHash = out[j-1].EntryHash
		}
		out[j].EntryHash, err = audit.EntryHash(out[j].PrevHash, out[j])
		require.NoError(t, err)
	}
	return out
}
