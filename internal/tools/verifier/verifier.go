// Package verifier checks a directory of exported run artifacts offline: the
// signed manifest against the files, then a full replay of the draw.
package verifier

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"fairdraw/internal/integrity"
	"fairdraw/internal/replay"
	"fairdraw/internal/run"
)

// Config holds the verifier flags.
type Config struct {
	Dir    string
	Lookup string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Dir: "."}
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "directory holding the exported run files")
	fs.StringVar(&cfg.Lookup, "lookup", "", "anon id or member id to report on (optional)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Report is the printed verification outcome.
type Report struct {
	OK           bool                     `json:"ok"`
	MissingFiles []string                 `json:"missingFiles,omitempty"`
	Integrity    integrity.Report         `json:"integrity"`
	Replay       ReplayReport             `json:"replay"`
	Individual   *replay.IndividualResult `json:"individual,omitempty"`
}

type ReplayReport struct {
	ChainOK  bool     `json:"chainOk"`
	ReplayOK bool     `json:"replayOk"`
	Reasons  []string `json:"reasons"`
	Winners  []string `json:"winners"`
	Waitlist []string `json:"waitlist"`
}

// Run verifies the files in cfg.Dir and writes the report to out as JSON.
// A failed verification is a negative report, not an error; errors are
// reserved for unreadable input.
func Run(cfg Config, out io.Writer) (Report, error) {
	if out == nil {
		return Report{}, errors.New("output is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", cfg.Dir, err)
	}
	if !info.IsDir() {
		return Report{}, fmt.Errorf("%s is not a directory", cfg.Dir)
	}

	files := map[string]string{}
	var missing []string
	for _, name := range []string{
		run.FileAuditJSONL,
		run.FileAuditSummary,
		run.FileIntegrityManifest,
		run.FileManifestSignature,
		run.FilePublicKeyJWK,
	} {
		data, err := os.ReadFile(filepath.Join(cfg.Dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return Report{}, fmt.Errorf("read %s: %w", name, err)
		}
		files[name] = string(data)
	}

	integrityReport := integrity.VerifyBundle(integrity.BundleInput{
		ManifestText:    files[run.FileIntegrityManifest],
		SignatureBase64: files[run.FileManifestSignature],
		PublicKeyText:   files[run.FilePublicKeyJWK],
		AuditJSONL:      files[run.FileAuditJSONL],
		AuditSummary:    files[run.FileAuditSummary],
	})
	res := replay.VerifyArtifacts(files[run.FileAuditSummary], files[run.FileAuditJSONL])

	report := Report{
		OK:           integrityReport.OK() && res.ReplayOK && len(missing) == 0,
		MissingFiles: missing,
		Integrity:    integrityReport,
		Replay: ReplayReport{
			ChainOK:  res.ChainOK,
			ReplayOK: res.ReplayOK,
			Reasons:  res.Reasons,
			Winners:  res.Replayed.Winners,
			Waitlist: res.Replayed.Waitlist,
		},
	}
	if cfg.Lookup != "" {
		individual := replay.VerifyIndividual(cfg.Lookup, res.Replayed)
		report.Individual = &individual
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return report, fmt.Errorf("write report: %w", err)
	}
	return report, nil
}
