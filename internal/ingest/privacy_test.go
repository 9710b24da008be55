package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fairdraw/pkg/digest"
)

func TestAnonID(t *testing.T) {
	row := RawRow{MemberID: " M-1 ", Name: "홍길동", BirthDate: "1990-01-01", Mobile: "010"}
	assert.Equal(t, digest.SHA256Hex("abc::M-1::홍길동::1990-01-01"), AnonID("abc", row))

	row.Mobile = "011"
	assert.Equal(t, AnonID("abc", row), AnonID("abc", RawRow{MemberID: "M-1", Name: "홍길동", BirthDate: "1990-01-01"}),
		"phone is not part of the identity")
	assert.NotEqual(t, AnonID("abc", row), AnonID("abd", row), "ids are scoped to one upload")
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "*", MaskName(""))
	assert.Equal(t, "*", MaskName("김"))
	assert.Equal(t, "김*", MaskName("김수"))
	assert.Equal(t, "홍*동", MaskName("홍길동"))
	assert.Equal(t, "남**수", MaskName(" 남궁민수 "))

	assert.Equal(t, "5678", Last4("010-1234-5678"))
	assert.Equal(t, "----", Last4("12"))

	assert.Equal(t, MaskedRow{AnonID: "x", MaskedName: "홍*동", PhoneLast4: "5678"},
		Mask("x", RawRow{Name: "홍길동", Mobile: "010 1234 5678"}))
}
