package handler

import (
	"time"

	"fairdraw/internal/ingest"
	"fairdraw/internal/run"
)

// RunResponse describes a published run. Files lists the artifact download
// paths.
type RunResponse struct {
	RunID        string   `json:"runId"`
	SeedHash     string   `json:"seedHash"`
	FinalHash    string   `json:"finalHash"`
	SelectedDong string   `json:"selectedDong"`
	Capacity     int      `json:"capacity"`
	Winners      []string `json:"winners"`
	Waitlist     []string `json:"waitlist"`
	CreatedAt    string   `json:"createdAt"`
	Files        []string `json:"files"`
}

// UploadResponse adds the ingestion statistics and the masked roster to a
// run created from a workbook upload.
type UploadResponse struct {
	RunResponse
	Stats      UploadStats        `json:"stats"`
	Applicants []ingest.MaskedRow `json:"applicants"`
}

type UploadStats struct {
	FileHash          string `json:"fileHash"`
	DuplicatePolicy   string `json:"duplicatePolicy"`
	UploadedRows      int    `json:"uploadedRows"`
	DuplicatesDropped int    `json:"duplicatesDropped"`
	ValidApplicants   int    `json:"validApplicants"`
	InvalidApplicants int    `json:"invalidApplicants"`
	LocalMatches      int    `json:"localMatches"`
}

var artifactFiles = []string{
	run.FileAuditJSONL,
	run.FileAuditSummary,
	run.FileIntegrityManifest,
	run.FileManifestSignature,
	run.FilePublicKeyJWK,
}

var artifactContentTypes = map[string]string{
	run.FileAuditJSONL:        "application/x-ndjson",
	run.FileAuditSummary:      "application/json",
	run.FileIntegrityManifest: "application/json",
	run.FileManifestSignature: "text/plain; charset=utf-8",
	run.FilePublicKeyJWK:      "application/jwk+json",
}

func toRunResponse(r *run.Run) RunResponse {
	files := make([]string, len(artifactFiles))
	for i, name := range artifactFiles {
		files[i] = "/runs/" + r.RunID + "/files/" + name
	}
	return RunResponse{
		RunID:        r.RunID,
		SeedHash:     r.SeedHash,
		FinalHash:    r.FinalHash,
		SelectedDong: r.SelectedDong,
		Capacity:     r.Capacity,
		Winners:      r.Winners,
		Waitlist:     r.Waitlist,
		CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339),
		Files:        files,
	}
}

func toUploadResponse(r *run.Run, p *ingest.Prepared) UploadResponse {
	return UploadResponse{
		RunResponse: toRunResponse(r),
		Stats: UploadStats{
			FileHash:          p.FileHash,
			DuplicatePolicy:   string(p.Policy),
			UploadedRows:      p.Stats.UploadedRows,
			DuplicatesDropped: p.Stats.DuplicatesDropped,
			ValidApplicants:   p.Stats.ValidApplicants,
			InvalidApplicants: p.Stats.InvalidApplicants,
			LocalMatches:      p.Stats.LocalMatches,
		},
		Applicants: p.Masked,
	}
}
