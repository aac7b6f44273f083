// Package access resolves a user's effective role on a document.
//
// Permission rows and the document row itself live behind independently
// restricted views, so no single query can answer "may this user touch
// this document". The resolver walks a fixed sequence of sources and the
// first one that produces a role wins. Errors from an individual source
// are treated as "no answer here" and the walk continues; the resolver
// only fails once every source has been exhausted.
package access

import (
	"context"
	"errors"

	"verjson/api/internal/rbac"
	"verjson/api/internal/store"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrAccessDenied = errors.New("access denied")
)

// Grant is the resolved outcome for one (document, user) pair.
type Grant struct {
	Role      rbac.Role
	HasAccess bool
}

// PermissionSource exposes the permission table. DocumentPermissionsBypass
// must read through a privileged channel that ignores the caller's own
// row visibility.
type PermissionSource interface {
	DocumentPermission(ctx context.Context, documentID, userID string) (store.Permission, error)
	DocumentPermissionsBypass(ctx context.Context, documentID string) ([]store.Permission, error)
	WorkspacePermission(ctx context.Context, workspaceID, userID string) (store.Permission, error)
	AcceptedWorkspacePermissions(ctx context.Context, userID string) ([]store.Permission, error)
}

// DocumentSource exposes the document rows the resolver needs.
type DocumentSource interface {
	GetDocument(ctx context.Context, documentID string) (store.Document, error)
	DocumentInWorkspace(ctx context.Context, documentID, workspaceID string) (bool, error)
}

type Resolver struct {
	permissions PermissionSource
	documents   DocumentSource
}

func NewResolver(permissions PermissionSource, documents DocumentSource) *Resolver {
	return &Resolver{permissions: permissions, documents: documents}
}

// Resolve walks the sources in order and returns the first role found.
// Skipping a layer causes false negatives for invited users whose view of
// the permission table is restricted, so every layer runs even when an
// earlier one errored.
func (r *Resolver) Resolve(ctx context.Context, documentID, userID string) (Grant, error) {
	documentSeen := false

	// 1. Direct accepted permission on the document.
	if p, err := r.permissions.DocumentPermission(ctx, documentID, userID); err == nil {
		return grantFor(p.Role), nil
	}

	// 2. Document row readable and owned by the user.
	doc, docErr := r.documents.GetDocument(ctx, documentID)
	if docErr == nil {
		documentSeen = true
		if doc.OwnerID == userID {
			return grantFor(string(rbac.RoleOwner)), nil
		}
	}

	// 3. Accepted permission on the document's workspace.
	if docErr == nil && doc.WorkspaceID != nil {
		if p, err := r.permissions.WorkspacePermission(ctx, *doc.WorkspaceID, userID); err == nil {
			return grantFor(p.Role), nil
		}
	}

	// 4. Privileged re-read of the document's permission rows. Catches the
	// case where step 1 failed only because the caller cannot see its own
	// invitation row.
	if records, err := r.permissions.DocumentPermissionsBypass(ctx, documentID); err == nil {
		if len(records) > 0 {
			documentSeen = true
		}
		for _, p := range records {
			if p.SubjectUserID == userID && p.Status == store.PermissionAccepted {
				return grantFor(p.Role), nil
			}
		}
	}

	// 5. Walk the user's accepted workspace grants and test membership.
	if grants, err := r.permissions.AcceptedWorkspacePermissions(ctx, userID); err == nil {
		for _, p := range grants {
			member, err := r.documents.DocumentInWorkspace(ctx, documentID, p.ResourceID)
			if err != nil {
				continue
			}
			if member {
				return grantFor(p.Role), nil
			}
		}
	}

	if !documentSeen {
		return Grant{}, ErrNotFound
	}
	return Grant{}, ErrAccessDenied
}

func grantFor(role string) Grant {
	return Grant{Role: rbac.Normalize(role), HasAccess: true}
}
