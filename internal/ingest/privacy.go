package ingest

import (
	"strings"

	"fairdraw/pkg/digest"
)

// AnonID derives the pseudonymous id sha256(fileHash::member::name::birth).
// The same person in the same upload always gets the same id.
func AnonID(fileHash string, row RawRow) string {
	return digest.SHA256Hex(fileHash + "::" + strings.TrimSpace(row.MemberID) + "::" +
		strings.TrimSpace(row.Name) + "::" + strings.TrimSpace(row.BirthDate))
}

// MaskName keeps the first and last character of names longer than two.
func MaskName(name string) string {
	chars := []rune(strings.TrimSpace(name))
	switch len(chars) {
	case 0, 1:
		return "*"
	case 2:
		return string(chars[0]) + "*"
	default:
		return string(chars[0]) + strings.Repeat("*", len(chars)-2) + string(chars[len(chars)-1])
	}
}

func NormalizePhone(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// Last4 returns the last four phone digits, or "----" when there are fewer.
func Last4(phone string) string {
	digits := NormalizePhone(phone)
	if len(digits) < 4 {
		return "----"
	}
	return digits[len(digits)-4:]
}

// MaskedRow is the public listing form of an applicant.
type MaskedRow struct {
	AnonID     string `json:"anonId"`
	MaskedName string `json:"maskedName"`
	PhoneLast4 string `json:"phoneLast4"`
}

func Mask(anonID string, row RawRow) MaskedRow {
	return MaskedRow{
		AnonID:     anonID,
		MaskedName: MaskName(row.Name),
		PhoneLast4: Last4(row.Mobile),
	}
}
