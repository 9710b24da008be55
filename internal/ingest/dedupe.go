package ingest

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

var nonDigits = regexp.MustCompile(`\D`)

var registrationLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// registrationTime parses the registration timestamp. Unparseable values sort
// first, as the zero time.
func registrationTime(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range registrationLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// identityKey is the member id, or name/birth date/phone digits when the
// member id is blank.
func identityKey(r RawRow) string {
	if member := strings.TrimSpace(r.MemberID); member != "" {
		return member
	}
	return strings.TrimSpace(r.Name) + "::" + strings.TrimSpace(r.BirthDate) + "::" + NormalizePhone(r.Mobile)
}

// DetectCollisions groups rows that share an identity key, keeping only
// groups of two or more.
func DetectCollisions(rows []RawRow) map[string][]RawRow {
	buckets := make(map[string][]RawRow)
	for _, r := range rows {
		key := identityKey(r)
		buckets[key] = append(buckets[key], r)
	}
	for k, v := range buckets {
		if len(v) < 2 {
			delete(buckets, k)
		}
	}
	return buckets
}

// ApplyDuplicatePolicy keeps one row per identity, the earliest or latest by
// registration time, and returns survivors in sheet order. keep-all returns
// rows unchanged.
func ApplyDuplicatePolicy(rows []RawRow, policy DuplicatePolicy) []RawRow {
	if policy == DuplicateKeepAll || policy == "" {
		return rows
	}

	var order []string
	groups := make(map[string][]RawRow)
	for _, r := range rows {
		key := identityKey(r)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	selected := make([]RawRow, 0, len(order))
	for _, key := range order {
		list := slices.Clone(groups[key])
		slices.SortStableFunc(list, func(a, b RawRow) int {
			return registrationTime(a.RegisteredAt).Compare(registrationTime(b.RegisteredAt))
		})
		if policy == DuplicateEarliest {
			selected = append(selected, list[0])
		} else {
			selected = append(selected, list[len(list)-1])
		}
	}

	slices.SortFunc(selected, func(a, b RawRow) int {
		return a.RowIndex - b.RowIndex
	})
	return selected
}
