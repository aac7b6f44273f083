package version

import (
	"verjson/api/internal/rbac"
)

// ValidateCreate checks a new triple against a document's existing history.
// The history must stay strictly monotonic under the encoded ordering, and
// exact duplicates are rejected before the monotonic check so the caller
// gets the more specific error.
func ValidateCreate(existing []Version, triple Triple, role rbac.Role) error {
	if role == rbac.RoleViewer {
		return ErrViewerForbidden
	}
	var latest Triple
	for _, v := range existing {
		if v.Triple == triple {
			return ErrDuplicateVersion
		}
		if v.Triple.Encoded() > latest.Encoded() {
			latest = v.Triple
		}
	}
	if len(existing) > 0 && triple.Encoded() <= latest.Encoded() {
		return &NonMonotonicError{Given: triple, Latest: latest}
	}
	return nil
}

// ValidateUpdate gates metadata updates: the author may edit their own
// version, the owner may edit any.
func ValidateUpdate(v Version, actorID string, role rbac.Role) error {
	if role == rbac.RoleViewer {
		return ErrViewerForbidden
	}
	if v.AuthorID != actorID && role != rbac.RoleOwner {
		return ErrOwnerOnly
	}
	return nil
}

// ValidateDelete gates plain deletes. A selected version is undeletable
// regardless of role; otherwise only the owner may delete.
func ValidateDelete(v Version, role rbac.Role) error {
	if v.Selected {
		return ErrSelectedDelete
	}
	if role == rbac.RoleViewer {
		return ErrViewerForbidden
	}
	if role != rbac.RoleOwner {
		return ErrOwnerOnly
	}
	return nil
}

// ValidateReview gates approve and reject, which both require a pending
// version and a non-viewer role.
func ValidateReview(v Version, role rbac.Role) error {
	if role == rbac.RoleViewer {
		return ErrViewerForbidden
	}
	if !rbac.Can(role, rbac.ActionApprove) {
		return ErrOwnerOnly
	}
	if v.Status != StatusPending {
		return ErrNotPending
	}
	return nil
}
