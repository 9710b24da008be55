// Package sentinel holds the storage facts stores report. Services map them
// to coded domain errors; input validation uses pkg/domain-errors directly.
package sentinel

import "errors"

var (
	// ErrNotFound: no run or snapshot under the requested id.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the id is already taken by a published run or a locked
	// snapshot.
	ErrConflict = errors.New("conflict")
)
