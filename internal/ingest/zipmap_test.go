package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zipLine builds a 20-column master row with the district in column 19.
func zipLine(zip, sido, sigungu, dong string) string {
	cols := make([]string, 20)
	cols[0], cols[1], cols[3], cols[19] = zip, sido, sigungu, dong
	return strings.Join(cols, "|")
}

func TestParseZipMapping(t *testing.T) {
	text := strings.Join([]string{
		zipLine("22879", "인천광역시", "서구", "아라1동"),
		"",
		zipLine(`"22710"`, "인천광역시", "서구", "청라1동"),
		"22711|인천광역시|too|few|columns",
		zipLine("2271", "인천광역시", "서구", "청라2동"),
		zipLine("22712", "인천광역시", "서구", "  "),
	}, "\r\n")

	zips := ParseZipMapping(text)

	require.Len(t, zips, 2)
	assert.Equal(t, "아라1동", zips["22879"].AdminDong)
	assert.Equal(t, "서구", zips["22879"].Sigungu)
	assert.Equal(t, "청라1동", zips["22710"].AdminDong)
}

func TestNormalizeZip(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"06234", "06234", true},
		{" '06234' ", "06234", true},
		{"0623", "", false},
		{"06234-1", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeZip(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAddressMatching(t *testing.T) {
	assert.Equal(t, "인천 서구 아라 1동 123", NormalizeAddress(" 인천 서구  (아라 1동) 123  "))
	assert.ElementsMatch(t, []string{"아라1동", "아라 1동"}, DongTokenVariants("아라1동"))

	assert.True(t, AddressMatchesDong("인천광역시 서구 아라 1동 12-3", "아라1동"))
	assert.True(t, AddressMatchesDong("인천광역시 서구 아라1동 12-3", "아라 1동"))
	assert.False(t, AddressMatchesDong("인천광역시 서구 당하동 12-3", "아라1동"))
	assert.False(t, AddressMatchesDong("   ", "아라1동"))
}

func TestAddressMatchingComposesJamo(t *testing.T) {
	decomposed := "\u1110\u1161\u11a8" // 탁 as conjoining jamo
	assert.True(t, AddressMatchesDong("서울 "+decomposed+"동", "탁동"))
}
