package audit

import (
	"fairdraw/internal/lottery"
	"fairdraw/internal/randomness"
)

// EventType names a chain entry. The set is closed for entries this service
// writes; verification accepts any type since it only checks hashes.
type EventType string

const (
	EventRunStarted        EventType = "run_started"
	EventApplicantsLoaded  EventType = "applicants_loaded"
	EventRandomnessFetched EventType = "randomness_fetched"
	EventSeedDerived       EventType = "seed_derived"
	EventDrawCompleted     EventType = "draw_completed"
)

var knownEventTypes = map[EventType]bool{
	EventRunStarted:        true,
	EventApplicantsLoaded:  true,
	EventRandomnessFetched: true,
	EventSeedDerived:       true,
	EventDrawCompleted:     true,
}

func (t EventType) IsKnown() bool {
	return knownEventTypes[t]
}

// RunStarted opens a run and commits the configuration and document hash.
type RunStarted struct {
	AppVersion string                `json:"appVersion"`
	RunID      string                `json:"runId"`
	RunSaltHex string                `json:"runSaltHex"`
	ExcelHash  string                `json:"excelHash"`
	Config     lottery.LotteryConfig `json:"config"`
}

// ApplicantsLoaded records the pool sizes, never the applicants themselves.
type ApplicantsLoaded struct {
	UploadedRows      int    `json:"uploadedRows"`
	ValidApplicants   int    `json:"validApplicants"`
	InvalidApplicants int    `json:"invalidApplicants"`
	LocalMatches      int    `json:"localMatches"`
	DuplicatePolicy   string `json:"duplicatePolicy,omitempty"`
}

// RandomnessFetched commits every provider sample and the final values.
type RandomnessFetched struct {
	BTC  randomness.Metric `json:"btc"`
	NIST randomness.Metric `json:"nist"`
}

// SeedDerived records the canonical seed inputs and their hash.
type SeedDerived struct {
	SeedParts []string `json:"seedParts"`
	SeedHash  string   `json:"seedHash"`
}

// DrawCompleted records the draw output as anon id lists.
type DrawCompleted struct {
	GuaranteeQuota int      `json:"guaranteeQuota"`
	Winners        []string `json:"winners"`
	Waitlist       []string `json:"waitlist"`
	Step1          []string `json:"step1"`
	Step2          []string `json:"step2"`
	Ordering       []string `json:"ordering"`
}
