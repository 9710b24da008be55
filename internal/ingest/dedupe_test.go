package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDuplicatePolicy(t *testing.T) {
	rows := []RawRow{
		{RowIndex: 2, MemberID: "A", RegisteredAt: "2026-02-03 10:00:00"},
		{RowIndex: 3, MemberID: "B", RegisteredAt: "2026-02-01 09:00:00"},
		{RowIndex: 4, MemberID: " A ", RegisteredAt: "2026-02-01 08:00:00"},
		{RowIndex: 5, Name: "김철수", BirthDate: "1980-05-05", Mobile: "010-1111-2222", RegisteredAt: "2026-02-01"},
		{RowIndex: 6, Name: "김철수", BirthDate: "1980-05-05", Mobile: "01011112222", RegisteredAt: "2026-02-02"},
	}

	indexes := func(rs []RawRow) []int {
		out := make([]int, len(rs))
		for i, r := range rs {
			out[i] = r.RowIndex
		}
		return out
	}

	assert.Equal(t, []int{2, 3, 4, 5, 6}, indexes(ApplyDuplicatePolicy(rows, DuplicateKeepAll)))
	assert.Equal(t, []int{2, 3, 6}, indexes(ApplyDuplicatePolicy(rows, DuplicateLatest)))
	assert.Equal(t, []int{3, 4, 5}, indexes(ApplyDuplicatePolicy(rows, DuplicateEarliest)))
}

func TestDuplicatePolicyUnparseableDatesKeepSheetOrder(t *testing.T) {
	rows := []RawRow{
		{RowIndex: 2, MemberID: "A", RegisteredAt: "yesterday"},
		{RowIndex: 3, MemberID: "A", RegisteredAt: ""},
	}
	assert.Equal(t, 3, ApplyDuplicatePolicy(rows, DuplicateLatest)[0].RowIndex)
	assert.Equal(t, 2, ApplyDuplicatePolicy(rows, DuplicateEarliest)[0].RowIndex)
}

func TestDetectCollisions(t *testing.T) {
	rows := []RawRow{
		{RowIndex: 2, MemberID: "A"},
		{RowIndex: 3, MemberID: "B"},
		{RowIndex: 4, MemberID: "A"},
	}
	got := DetectCollisions(rows)
	assert.Len(t, got, 1)
	assert.Len(t, got["A"], 2)
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, DuplicateKeepAll, p)

	p, err = ParseDuplicatePolicy(" latest ")
	assert.NoError(t, err)
	assert.Equal(t, DuplicateLatest, p)

	_, err = ParseDuplicatePolicy("newest")
	assert.Error(t, err)
}
