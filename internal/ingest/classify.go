package ingest

import (
	"strings"

	"fairdraw/internal/lottery"
)

// Validation failure reasons, in the order they are checked.
const (
	ReasonMissingName     = "이름 누락"
	ReasonMissingMemberID = "회원ID 누락"
	ReasonMissingMobile   = "휴대전화 누락"
	ReasonMissingZip      = "우편번호 누락"
	ReasonMissingAddress  = "주소 누락"
)

// Validate lists every required field the row is missing.
func Validate(row RawRow) (bool, []string) {
	reasons := []string{}
	required := []struct {
		value  string
		reason string
	}{
		{row.Name, ReasonMissingName},
		{row.MemberID, ReasonMissingMemberID},
		{row.Mobile, ReasonMissingMobile},
		{row.Zip, ReasonMissingZip},
		{row.Address, ReasonMissingAddress},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			reasons = append(reasons, f.reason)
		}
	}
	return len(reasons) == 0, reasons
}

// Classification is the local-priority decision for one row and the
// evidence behind it.
type Classification struct {
	Match  bool
	Reason string
	Source lottery.ClassificationSource
}

// Classify decides membership of the selected district. A known postal code
// is authoritative; otherwise the address text is searched for the district
// name; otherwise the row is unknown and does not match.
func Classify(row RawRow, selectedDong string, zips ZipMap) Classification {
	zip, zipOK := NormalizeZip(row.Zip)
	if zipOK {
		if rec, found := zips[zip]; found {
			return Classification{
				Match:  strings.TrimSpace(rec.AdminDong) == strings.TrimSpace(selectedDong),
				Reason: "zip:" + zip + " -> " + rec.Sido + " " + rec.Sigungu + " " + rec.AdminDong,
				Source: lottery.SourceZip,
			}
		}
	}

	if AddressMatchesDong(row.Address, selectedDong) {
		return Classification{
			Match:  true,
			Reason: "address_fallback_matched:" + selectedDong,
			Source: lottery.SourceAddress,
		}
	}

	reason := "zip_missing_or_invalid_and_address_no_confident_match"
	if zipOK {
		reason = "zip_not_found:" + zip
	}
	return Classification{Reason: reason, Source: lottery.SourceUnknown}
}

// BuildApplicant validates and classifies a row into its pseudonymous draw
// form. An invalid row never matches the selected district.
func BuildApplicant(row RawRow, anonID, selectedDong string, zips ZipMap) (lottery.Applicant, error) {
	valid, reasons := Validate(row)
	cls := Classify(row, selectedDong, zips)
	return lottery.NewApplicant(anonID, strings.TrimSpace(row.MemberID), valid, reasons, cls.Match, cls.Reason, cls.Source)
}
