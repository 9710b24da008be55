package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Column positions in the postal-code master file.
const (
	zipColumn       = 0
	sidoColumn      = 1
	sigunguColumn   = 3
	adminDongColumn = 19
	minZipColumns   = 20
)

var (
	zipNoise       = regexp.MustCompile(`["'\s]`)
	fiveDigits     = regexp.MustCompile(`^\d{5}$`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	parentheses    = regexp.MustCompile(`[()]`)
	numberedDong   = regexp.MustCompile(`(\D)(\d)(동)`)
	spacedDongNumb = regexp.MustCompile(`(\D)\s+(\d)(동)`)
)

// NormalizeZip strips quotes and whitespace and returns the code only when
// exactly five digits remain.
func NormalizeZip(zip string) (string, bool) {
	cleaned := zipNoise.ReplaceAllString(zip, "")
	if !fiveDigits.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

// ParseZipMapping reads the pipe-delimited postal-code master. Rows with
// fewer than 20 columns, an invalid postal code or no district are skipped.
// A later row for the same code replaces an earlier one.
func ParseZipMapping(text string) ZipMap {
	out := make(ZipMap)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := strings.Split(line, "|")
		if len(cols) < minZipColumns {
			continue
		}
		zip, ok := NormalizeZip(cols[zipColumn])
		dong := strings.TrimSpace(cols[adminDongColumn])
		if !ok || dong == "" {
			continue
		}
		out[zip] = ZipRecord{
			Zip:       zip,
			Sido:      strings.TrimSpace(cols[sidoColumn]),
			Sigungu:   strings.TrimSpace(cols[sigunguColumn]),
			AdminDong: norm.NFC.String(dong),
		}
	}
	return out
}

// NormalizeAddress composes Hangul to NFC, collapses whitespace, drops
// parentheses and lowercases.
func NormalizeAddress(address string) string {
	s := norm.NFC.String(strings.TrimSpace(address))
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = parentheses.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// DongTokenVariants returns the spellings a district name may take inside a
// free-text address: as given, without spaces, with a space before the
// number and without one.
func DongTokenVariants(dong string) []string {
	base := strings.ToLower(norm.NFC.String(strings.TrimSpace(dong)))
	candidates := []string{
		base,
		whitespaceRun.ReplaceAllString(base, ""),
		numberedDong.ReplaceAllString(base, "${1} ${2}${3}"),
		spacedDongNumb.ReplaceAllString(base, "${1}${2}${3}"),
	}
	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// AddressMatchesDong reports whether any district spelling appears in the
// normalized address.
func AddressMatchesDong(address, dong string) bool {
	normalized := NormalizeAddress(address)
	if normalized == "" {
		return false
	}
	for _, token := range DongTokenVariants(dong) {
		if token != "" && strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}
