package handler

import (
	"strconv"
	"strings"

	"fairdraw/internal/lottery"
	"fairdraw/internal/randomness"
	"fairdraw/internal/run"
	dErrors "fairdraw/pkg/domain-errors"
)

const maxApplicants = 100_000

// ApplicantRequest is one pre-classified applicant in a JSON draw request.
type ApplicantRequest struct {
	AnonID               string   `json:"anonId"`
	MemberID             string   `json:"memberId"`
	Valid                bool     `json:"valid"`
	InvalidReasons       []string `json:"invalidReasons"`
	SelectedDongMatch    bool     `json:"selectedDongMatch"`
	ClassificationReason string   `json:"classificationReason"`
	ClassificationSource string   `json:"classificationSource"`
}

// CreateRunRequest is the body of POST /runs.
type CreateRunRequest struct {
	RunID           string                `json:"runId"`
	ExcelHash       string                `json:"excelHash"`
	Config          lottery.LotteryConfig `json:"config"`
	Applicants      []ApplicantRequest    `json:"applicants"`
	UploadedRows    int                   `json:"uploadedRows"`
	DuplicatePolicy string                `json:"duplicatePolicy"`
	Overrides       map[string]string     `json:"overrides"`
}

// Validate implements httputil.Validatable.
func (r *CreateRunRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.RunID = strings.TrimSpace(r.RunID)
	r.ExcelHash = strings.TrimSpace(r.ExcelHash)
	r.Config.SelectedDong = strings.TrimSpace(r.Config.SelectedDong)

	if r.ExcelHash == "" {
		return dErrors.New(dErrors.CodeValidation, "excelHash is required")
	}
	if len(r.Applicants) > maxApplicants {
		return dErrors.New(dErrors.CodeValidation, "too many applicants")
	}
	if r.UploadedRows < 0 {
		return dErrors.New(dErrors.CodeValidation, "uploadedRows must not be negative")
	}
	for i, a := range r.Applicants {
		if strings.TrimSpace(a.AnonID) == "" {
			return dErrors.New(dErrors.CodeValidation, "applicants["+strconv.Itoa(i)+"].anonId is required")
		}
	}
	return r.Config.Validate()
}

// ToExecuteRequest converts the body into a service request.
func (r *CreateRunRequest) ToExecuteRequest() (run.ExecuteRequest, error) {
	applicants := make([]lottery.Applicant, 0, len(r.Applicants))
	for i, a := range r.Applicants {
		source := lottery.SourceUnknown
		if strings.TrimSpace(a.ClassificationSource) != "" {
			parsed, err := lottery.ParseClassificationSource(a.ClassificationSource)
			if err != nil {
				return run.ExecuteRequest{}, dErrors.Wrap(err, dErrors.CodeValidation,
					"applicants["+strconv.Itoa(i)+"].classificationSource must be one of zip, address, unknown")
			}
			source = parsed
		}
		applicant, err := lottery.NewApplicant(strings.TrimSpace(a.AnonID), strings.TrimSpace(a.MemberID),
			a.Valid, a.InvalidReasons, a.SelectedDongMatch, a.ClassificationReason, source)
		if err != nil {
			return run.ExecuteRequest{}, dErrors.Wrap(err, dErrors.CodeValidation, "applicants["+strconv.Itoa(i)+"] is invalid")
		}
		applicants = append(applicants, applicant)
	}

	overrides, err := parseOverrides(r.Overrides)
	if err != nil {
		return run.ExecuteRequest{}, err
	}
	return run.ExecuteRequest{
		RunID:           r.RunID,
		ExcelHash:       r.ExcelHash,
		Config:          r.Config,
		Applicants:      applicants,
		UploadedRows:    r.UploadedRows,
		DuplicatePolicy: r.DuplicatePolicy,
		Overrides:       overrides,
	}, nil
}

// parseOverrides accepts metric names case-insensitively and skips blank
// values, which is what an empty form field submits.
func parseOverrides(in map[string]string) (map[randomness.MetricKind]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[randomness.MetricKind]string, len(in))
	for name, value := range in {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		kind := randomness.MetricKind(strings.ToUpper(strings.TrimSpace(name)))
		if kind != randomness.MetricBTC && kind != randomness.MetricNIST {
			return nil, dErrors.New(dErrors.CodeValidation, "override metric must be BTC or NIST")
		}
		out[kind] = value
	}
	return out, nil
}
