package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Workspace struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// Document's materialized_content column is a cache of the current
// best-known rendering, refreshed on approval. The version history is the
// authority.
type Document struct {
	ID                  string
	Title               string
	OwnerID             string
	WorkspaceID         *string
	MaterializedContent json.RawMessage
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

const (
	ResourceDocument  = "document"
	ResourceWorkspace = "workspace"
)

const (
	PermissionPending  = "pending"
	PermissionAccepted = "accepted"
)

// Permission rows are created by invitation and accepted by the invitee.
// The version core only ever reads them.
type Permission struct {
	ID            string
	SubjectUserID string
	ResourceID    string
	ResourceKind  string
	Role          string
	Status        string
	CreatedAt     time.Time
}
