package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairdraw/internal/lottery"
)

func completeRow() RawRow {
	return RawRow{
		RowIndex:  2,
		Name:      "홍길동",
		MemberID:  "M-001",
		BirthDate: "1990-01-01",
		Mobile:    "010-1234-5678",
		Zip:       "22879",
		Address:   "인천광역시 서구 아라1동 1",
	}
}

func TestValidate(t *testing.T) {
	ok, reasons := Validate(completeRow())
	assert.True(t, ok)
	assert.Empty(t, reasons)

	ok, reasons = Validate(RawRow{Name: " ", Address: "x"})
	assert.False(t, ok)
	assert.Equal(t, []string{ReasonMissingName, ReasonMissingMemberID, ReasonMissingMobile, ReasonMissingZip}, reasons)
}

func TestClassify(t *testing.T) {
	zips := ZipMap{"22879": {Zip: "22879", Sido: "인천광역시", Sigungu: "서구", AdminDong: "아라1동"}}

	t.Run("known zip decides", func(t *testing.T) {
		got := Classify(completeRow(), "아라1동", zips)
		assert.Equal(t, Classification{Match: true, Reason: "zip:22879 -> 인천광역시 서구 아라1동", Source: lottery.SourceZip}, got)

		got = Classify(completeRow(), "청라1동", zips)
		assert.False(t, got.Match)
		assert.Equal(t, lottery.SourceZip, got.Source, "a known zip is authoritative even when the address mentions another district")
	})

	t.Run("address fallback", func(t *testing.T) {
		row := completeRow()
		row.Zip = "99999"
		got := Classify(row, "아라 1동", zips)
		assert.Equal(t, Classification{Match: true, Reason: "address_fallback_matched:아라 1동", Source: lottery.SourceAddress}, got)
	})

	t.Run("unknown", func(t *testing.T) {
		row := completeRow()
		row.Zip = "99999"
		row.Address = "부산광역시"
		assert.Equal(t, "zip_not_found:99999", Classify(row, "아라1동", zips).Reason)

		row.Zip = "abc"
		got := Classify(row, "아라1동", nil)
		assert.Equal(t, lottery.SourceUnknown, got.Source)
		assert.Equal(t, "zip_missing_or_invalid_and_address_no_confident_match", got.Reason)
	})
}

func TestBuildApplicantInvalidNeverMatches(t *testing.T) {
	row := completeRow()
	row.Mobile = ""
	a, err := BuildApplicant(row, "anon", "아라1동", nil)
	require.NoError(t, err)
	assert.False(t, a.Valid)
	assert.False(t, a.SelectedDongMatch)
	assert.Equal(t, lottery.SourceAddress, a.ClassificationSource)
	assert.Equal(t, []string{ReasonMissingMobile}, a.InvalidReasons)
}
