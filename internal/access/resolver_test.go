package access

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"verjson/api/internal/rbac"
	"verjson/api/internal/store"
)

type fakePermissions struct {
	documentPermission           func(documentID, userID string) (store.Permission, error)
	documentPermissionsBypass    func(documentID string) ([]store.Permission, error)
	workspacePermission          func(workspaceID, userID string) (store.Permission, error)
	acceptedWorkspacePermissions func(userID string) ([]store.Permission, error)
}

func (f *fakePermissions) DocumentPermission(_ context.Context, documentID, userID string) (store.Permission, error) {
	if f.documentPermission == nil {
		return store.Permission{}, sql.ErrNoRows
	}
	return f.documentPermission(documentID, userID)
}

func (f *fakePermissions) DocumentPermissionsBypass(_ context.Context, documentID string) ([]store.Permission, error) {
	if f.documentPermissionsBypass == nil {
		return nil, nil
	}
	return f.documentPermissionsBypass(documentID)
}

func (f *fakePermissions) WorkspacePermission(_ context.Context, workspaceID, userID string) (store.Permission, error) {
	if f.workspacePermission == nil {
		return store.Permission{}, sql.ErrNoRows
	}
	return f.workspacePermission(workspaceID, userID)
}

func (f *fakePermissions) AcceptedWorkspacePermissions(_ context.Context, userID string) ([]store.Permission, error) {
	if f.acceptedWorkspacePermissions == nil {
		return nil, nil
	}
	return f.acceptedWorkspacePermissions(userID)
}

type fakeDocuments struct {
	getDocument         func(documentID string) (store.Document, error)
	documentInWorkspace func(documentID, workspaceID string) (bool, error)
}

func (f *fakeDocuments) GetDocument(_ context.Context, documentID string) (store.Document, error) {
	if f.getDocument == nil {
		return store.Document{}, sql.ErrNoRows
	}
	return f.getDocument(documentID)
}

func (f *fakeDocuments) DocumentInWorkspace(_ context.Context, documentID, workspaceID string) (bool, error) {
	if f.documentInWorkspace == nil {
		return false, nil
	}
	return f.documentInWorkspace(documentID, workspaceID)
}

func TestResolveDirectPermissionWinsFirst(t *testing.T) {
	perms := &fakePermissions{
		documentPermission: func(documentID, userID string) (store.Permission, error) {
			return store.Permission{Role: "editor", Status: store.PermissionAccepted}, nil
		},
	}
	docs := &fakeDocuments{
		getDocument: func(documentID string) (store.Document, error) {
			t.Fatal("document row should not be consulted when a direct permission exists")
			return store.Document{}, nil
		},
	}

	grant, err := NewResolver(perms, docs).Resolve(context.Background(), "doc_1", "u_1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grant.Role != rbac.RoleEditor || !grant.HasAccess {
		t.Errorf("grant = %+v", grant)
	}
}

func TestResolveOwnerFromDocumentRow(t *testing.T) {
	docs := &fakeDocuments{
		getDocument: func(documentID string) (store.Document, error) {
			return store.Document{ID: documentID, OwnerID: "u_owner"}, nil
		},
	}

	grant, err := NewResolver(&fakePermissions{}, docs).Resolve(context.Background(), "doc_1", "u_owner")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grant.Role != rbac.RoleOwner {
		t.Errorf("role = %s, want owner", grant.Role)
	}
}

func TestResolveWorkspacePermissionOnDocumentWorkspace(t *testing.T) {
	workspaceID := "ws_1"
	perms := &fakePermissions{
		workspacePermission: func(wsID, userID string) (store.Permission, error) {
			if wsID != workspaceID {
				t.Errorf("queried workspace %s, want %s", wsID, workspaceID)
			}
			return store.Permission{Role: "viewer", Status: store.PermissionAccepted}, nil
		},
	}
	docs := &fakeDocuments{
		getDocument: func(documentID string) (store.Document, error) {
			return store.Document{ID: documentID, OwnerID: "someone_else", WorkspaceID: &workspaceID}, nil
		},
	}

	grant, err := NewResolver(perms, docs).Resolve(context.Background(), "doc_1", "u_member")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grant.Role != rbac.RoleViewer {
		t.Errorf("role = %s, want viewer", grant.Role)
	}
}

// An invited user may be unable to read their own permission row directly.
// The privileged re-read must still find it.
func TestResolveBypassFindsHiddenInvitation(t *testing.T) {
	perms := &fakePermissions{
		documentPermission: func(documentID, userID string) (store.Permission, error) {
			return store.Permission{}, errors.New("row level security")
		},
		documentPermissionsBypass: func(documentID string) ([]store.Permission, error) {
			return []store.Permission{
				{SubjectUserID: "u_other", Role: "owner", Status: store.PermissionAccepted},
				{SubjectUserID: "u_invited", Role: "editor", Status: store.PermissionAccepted},
			}, nil
		},
	}

	grant, err := NewResolver(perms, &fakeDocuments{}).Resolve(context.Background(), "doc_1", "u_invited")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grant.Role != rbac.RoleEditor {
		t.Errorf("role = %s, want editor", grant.Role)
	}
}

func TestResolveBypassIgnoresPendingInvitation(t *testing.T) {
	perms := &fakePermissions{
		documentPermissionsBypass: func(documentID string) ([]store.Permission, error) {
			return []store.Permission{
				{SubjectUserID: "u_invited", Role: "editor", Status: store.PermissionPending},
			}, nil
		},
	}

	_, err := NewResolver(perms, &fakeDocuments{}).Resolve(context.Background(), "doc_1", "u_invited")
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
}

// A workspace editor whose document row and permission rows are all hidden
// is still authorized through membership of the enclosing workspace.
func TestResolveWorkspaceMembershipFallback(t *testing.T) {
	perms := &fakePermissions{
		acceptedWorkspacePermissions: func(userID string) ([]store.Permission, error) {
			return []store.Permission{
				{ResourceID: "ws_other", Role: "viewer", Status: store.PermissionAccepted},
				{ResourceID: "ws_home", Role: "editor", Status: store.PermissionAccepted},
			}, nil
		},
	}
	docs := &fakeDocuments{
		documentInWorkspace: func(documentID, workspaceID string) (bool, error) {
			return workspaceID == "ws_home", nil
		},
	}

	grant, err := NewResolver(perms, docs).Resolve(context.Background(), "doc_1", "u_member")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grant.Role != rbac.RoleEditor {
		t.Errorf("role = %s, want editor", grant.Role)
	}
}

func TestResolveMembershipErrorsAreSkipped(t *testing.T) {
	calls := 0
	perms := &fakePermissions{
		acceptedWorkspacePermissions: func(userID string) ([]store.Permission, error) {
			return []store.Permission{
				{ResourceID: "ws_broken", Role: "owner", Status: store.PermissionAccepted},
				{ResourceID: "ws_home", Role: "viewer", Status: store.PermissionAccepted},
			}, nil
		},
	}
	docs := &fakeDocuments{
		documentInWorkspace: func(documentID, workspaceID string) (bool, error) {
			calls++
			if workspaceID == "ws_broken" {
				return false, errors.New("timeout")
			}
			return true, nil
		},
	}

	grant, err := NewResolver(perms, docs).Resolve(context.Background(), "doc_1", "u_member")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grant.Role != rbac.RoleViewer {
		t.Errorf("role = %s, want viewer", grant.Role)
	}
	if calls != 2 {
		t.Errorf("membership checks = %d, want 2", calls)
	}
}

func TestResolveNotFoundWhenNoSourceSeesDocument(t *testing.T) {
	_, err := NewResolver(&fakePermissions{}, &fakeDocuments{}).Resolve(context.Background(), "doc_missing", "u_1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveAccessDeniedWhenDocumentVisibleButUnauthorized(t *testing.T) {
	docs := &fakeDocuments{
		getDocument: func(documentID string) (store.Document, error) {
			return store.Document{ID: documentID, OwnerID: "someone_else"}, nil
		},
	}
	_, err := NewResolver(&fakePermissions{}, docs).Resolve(context.Background(), "doc_1", "u_stranger")
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
}

func TestResolveUnknownRoleCoercedToViewer(t *testing.T) {
	perms := &fakePermissions{
		documentPermission: func(documentID, userID string) (store.Permission, error) {
			return store.Permission{Role: "superadmin", Status: store.PermissionAccepted}, nil
		},
	}
	grant, err := NewResolver(perms, &fakeDocuments{}).Resolve(context.Background(), "doc_1", "u_1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grant.Role != rbac.RoleViewer {
		t.Errorf("role = %s, want viewer", grant.Role)
	}
}
