package version

import (
	"errors"
	"fmt"
)

var (
	ErrVersionNotFound  = errors.New("version not found")
	ErrViewerForbidden  = errors.New("viewers cannot modify versions")
	ErrOwnerOnly        = errors.New("operation requires the document owner")
	ErrDuplicateVersion = errors.New("version number already exists for this document")
	ErrNotPending       = errors.New("version is not pending review")
	ErrSelectedDelete   = errors.New("selected versions cannot be deleted")
	ErrSameVersionDiff  = errors.New("cannot diff a version against itself")
)

// NonMonotonicError reports a create attempt whose triple does not advance
// the document's history.
type NonMonotonicError struct {
	Given  Triple
	Latest Triple
}

func (e *NonMonotonicError) Error() string {
	return fmt.Sprintf("version %s must be greater than the latest version %s", e.Given, e.Latest)
}
