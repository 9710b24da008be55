package ingest

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"fairdraw/pkg/digest"
	dErrors "fairdraw/pkg/domain-errors"
)

// expectedHeaders is the export layout of the registration system, in
// default column order.
var expectedHeaders = []string{
	"no", "이름", "성별", "생년월일", "나이", "만나이", "할인대상", "수강료", "회원ID", "전화번호",
	"휴대전화", "이메일", "우편번호", "주소", "직업", "직장명", "메모", "접수방법", "접수상태", "접수유형",
	"등록일",
}

// field returns the RawRow field a header fills.
func (r *RawRow) field(header string) *string {
	switch header {
	case "no":
		return &r.No
	case "이름":
		return &r.Name
	case "성별":
		return &r.Gender
	case "생년월일":
		return &r.BirthDate
	case "나이":
		return &r.Age
	case "만나이":
		return &r.InternationalAge
	case "할인대상":
		return &r.DiscountTarget
	case "수강료":
		return &r.Fee
	case "회원ID":
		return &r.MemberID
	case "전화번호":
		return &r.Phone
	case "휴대전화":
		return &r.Mobile
	case "이메일":
		return &r.Email
	case "우편번호":
		return &r.Zip
	case "주소":
		return &r.Address
	case "직업":
		return &r.Occupation
	case "직장명":
		return &r.Workplace
	case "메모":
		return &r.Memo
	case "접수방법":
		return &r.ApplyMethod
	case "접수상태":
		return &r.ApplyStatus
	case "접수유형":
		return &r.ApplyType
	case "등록일":
		return &r.RegisteredAt
	}
	return nil
}

// Workbook is a parsed upload together with the hash of its exact bytes.
type Workbook struct {
	FileHash string
	Rows     []RawRow
}

// ReadApplicantsXLSX reads the first sheet of an .xlsx upload. FileHash is
// the SHA-256 of the uploaded bytes and is what the seed commits to.
func ReadApplicantsXLSX(r io.Reader) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "upload is not a readable .xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read "+sheets[0])
	}

	return &Workbook{
		FileHash: digest.SHA256HexBytes(data),
		Rows:     MapRows(rows),
	}, nil
}

// MapRows converts a 2D sheet (header first) into RawRows.
func MapRows(rows [][]string) []RawRow {
	if len(rows) == 0 {
		return []RawRow{}
	}

	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = strings.TrimSpace(cell)
	}
	// Exports without any recognised header are read positionally.
	columns := make(map[string]int, len(expectedHeaders))
	for _, h := range expectedHeaders {
		if i := slices.Index(header, h); i >= 0 {
			columns[h] = i
		}
	}
	if len(columns) == 0 {
		for pos, h := range expectedHeaders {
			columns[h] = pos
		}
	}

	out := make([]RawRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		row := RawRow{RowIndex: i + 2}
		for _, h := range expectedHeaders {
			if idx, ok := columns[h]; ok && idx < len(cells) {
				*row.field(h) = strings.TrimSpace(cells[idx])
			}
		}
		out = append(out, row)
	}
	return out
}
