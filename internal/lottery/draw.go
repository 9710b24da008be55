package lottery

import (
	dErrors "fairdraw/pkg/domain-errors"
)

// RunLottery shuffles the valid applicants under the derived seed and splits
// them into winners and waitlist.
//
// When the pool fits within capacity everyone wins in shuffle order. Otherwise
// up to GuaranteeQuota local-priority applicants are admitted first (step 1),
// then the remaining seats are filled from the shuffle in order (step 2). The
// waitlist is every other applicant in shuffle order.
func RunLottery(valid []Applicant, cfg LotteryConfig, m SeedMaterial) (*DrawResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkUniqueIDs(valid); err != nil {
		return nil, err
	}

	seedHash := DeriveSeedHash(m)
	gen, err := NewGenerator(seedHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed generator")
	}

	shuffled := Shuffle(valid, gen)
	ordering := anonIDs(shuffled)
	capacity := cfg.Capacity
	quota := CalcGuaranteeQuota(capacity, cfg.RoundingMode)

	result := &DrawResult{
		RunID:          m.RunID,
		RunSaltHex:     m.RunSaltHex,
		SeedHash:       seedHash,
		GuaranteeQuota: quota,
		Ordering:       ordering,
	}

	if len(valid) <= capacity {
		result.Winners = shuffled
		result.Waitlist = []Applicant{}
		result.Step1WinnerAnonIDs, result.Step2WinnerAnonIDs = splitByMatch(shuffled, func(a Applicant) bool {
			return a.SelectedDongMatch
		})
		return result, nil
	}

	step1 := make(map[string]bool, quota)
	for _, a := range shuffled {
		if len(step1) >= quota {
			break
		}
		if a.SelectedDongMatch {
			step1[a.AnonID] = true
		}
	}

	winners := make([]Applicant, 0, capacity)
	admitted := make(map[string]bool, capacity)
	for _, a := range shuffled {
		if step1[a.AnonID] {
			winners = append(winners, a)
			admitted[a.AnonID] = true
		}
	}
	for _, a := range shuffled {
		if len(winners) >= capacity {
			break
		}
		if admitted[a.AnonID] {
			continue
		}
		winners = append(winners, a)
		admitted[a.AnonID] = true
	}

	waitlist := make([]Applicant, 0, len(shuffled)-len(winners))
	for _, a := range shuffled {
		if !admitted[a.AnonID] {
			waitlist = append(waitlist, a)
		}
	}

	result.Winners = winners
	result.Waitlist = waitlist
	result.Step1WinnerAnonIDs, result.Step2WinnerAnonIDs = splitByMatch(winners, func(a Applicant) bool {
		return step1[a.AnonID]
	})
	return result, nil
}

func splitByMatch(as []Applicant, in func(Applicant) bool) (matched, rest []string) {
	matched = []string{}
	rest = []string{}
	for _, a := range as {
		if in(a) {
			matched = append(matched, a.AnonID)
		} else {
			rest = append(rest, a.AnonID)
		}
	}
	return matched, rest
}

func checkUniqueIDs(as []Applicant) error {
	seen := make(map[string]struct{}, len(as))
	for _, a := range as {
		if _, dup := seen[a.AnonID]; dup {
			return dErrors.New(dErrors.CodeInvariantViolation, "duplicate anon id in applicant set: "+a.AnonID)
		}
		seen[a.AnonID] = struct{}{}
	}
	return nil
}
