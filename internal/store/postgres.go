package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"verjson/api/internal/version"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users ----

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users WHERE email=$1
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ---- refresh sessions (fallback when redis is not configured) ----

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email, u.password_hash, u.created_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, expiresAt)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// ---- workspaces ----

func (s *PostgresStore) InsertWorkspace(ctx context.Context, workspace Workspace) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, owner_id)
		VALUES ($1, $2, $3)
	`, workspace.ID, workspace.Name, workspace.OwnerID)
	if err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, workspaceID string) (Workspace, error) {
	var workspace Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at FROM workspaces WHERE id=$1
	`, workspaceID).Scan(&workspace.ID, &workspace.Name, &workspace.OwnerID, &workspace.CreatedAt)
	if err != nil {
		return Workspace{}, err
	}
	return workspace, nil
}

// ---- documents ----

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, owner_id, workspace_id, materialized_content)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.Title, item.OwnerID, item.WorkspaceID, nullableJSON(item.MaterializedContent))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	var content []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, owner_id, workspace_id, materialized_content, created_at, updated_at
		FROM documents WHERE id=$1
	`, documentID).Scan(&item.ID, &item.Title, &item.OwnerID, &item.WorkspaceID, &content, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	item.MaterializedContent = content
	return item, nil
}

// ListDocumentsForUser returns documents the user owns or can reach
// through an accepted document or workspace permission.
func (s *PostgresStore) ListDocumentsForUser(ctx context.Context, userID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.owner_id, d.workspace_id, d.materialized_content, d.created_at, d.updated_at
		FROM documents d
		WHERE d.owner_id = $1
			OR EXISTS (
				SELECT 1 FROM permissions p
				WHERE p.subject_user_id = $1 AND p.status = 'accepted'
					AND p.resource_kind = 'document' AND p.resource_id = d.id
			)
			OR (d.workspace_id IS NOT NULL AND EXISTS (
				SELECT 1 FROM permissions p
				WHERE p.subject_user_id = $1 AND p.status = 'accepted'
					AND p.resource_kind = 'workspace' AND p.resource_id = d.workspace_id
			))
		ORDER BY d.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		var content []byte
		if err := rows.Scan(&item.ID, &item.Title, &item.OwnerID, &item.WorkspaceID, &content, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		item.MaterializedContent = content
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DocumentInWorkspace(ctx context.Context, documentID, workspaceID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM documents WHERE id=$1 AND workspace_id=$2)
	`, documentID, workspaceID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check document workspace: %w", err)
	}
	return ok, nil
}

// ---- permissions ----

func (s *PostgresStore) InsertPermission(ctx context.Context, permission Permission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permissions (id, subject_user_id, resource_id, resource_kind, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, permission.ID, permission.SubjectUserID, permission.ResourceID, permission.ResourceKind, permission.Role, permission.Status)
	if err != nil {
		return fmt.Errorf("insert permission: %w", err)
	}
	return nil
}

func (s *PostgresStore) AcceptPermission(ctx context.Context, permissionID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE permissions SET status='accepted'
		WHERE id=$1 AND subject_user_id=$2 AND status='pending'
	`, permissionID, userID)
	if err != nil {
		return false, fmt.Errorf("accept permission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accept permission rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DocumentPermission(ctx context.Context, documentID, userID string) (Permission, error) {
	var p Permission
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject_user_id, resource_id, resource_kind, role, status, created_at
		FROM permissions
		WHERE resource_kind='document' AND resource_id=$1 AND subject_user_id=$2 AND status='accepted'
	`, documentID, userID).Scan(&p.ID, &p.SubjectUserID, &p.ResourceID, &p.ResourceKind, &p.Role, &p.Status, &p.CreatedAt)
	if err != nil {
		return Permission{}, err
	}
	return p, nil
}

// DocumentPermissionsBypass reads every permission row for a document
// through the privileged connection, regardless of the caller's own
// visibility of the permission table.
func (s *PostgresStore) DocumentPermissionsBypass(ctx context.Context, documentID string) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_user_id, resource_id, resource_kind, role, status, created_at
		FROM permissions
		WHERE resource_kind='document' AND resource_id=$1
		ORDER BY created_at ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document permissions: %w", err)
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (s *PostgresStore) WorkspacePermission(ctx context.Context, workspaceID, userID string) (Permission, error) {
	var p Permission
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject_user_id, resource_id, resource_kind, role, status, created_at
		FROM permissions
		WHERE resource_kind='workspace' AND resource_id=$1 AND subject_user_id=$2 AND status='accepted'
	`, workspaceID, userID).Scan(&p.ID, &p.SubjectUserID, &p.ResourceID, &p.ResourceKind, &p.Role, &p.Status, &p.CreatedAt)
	if err != nil {
		return Permission{}, err
	}
	return p, nil
}

func (s *PostgresStore) AcceptedWorkspacePermissions(ctx context.Context, userID string) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_user_id, resource_id, resource_kind, role, status, created_at
		FROM permissions
		WHERE resource_kind='workspace' AND subject_user_id=$1 AND status='accepted'
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspace permissions: %w", err)
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func scanPermissions(rows *sql.Rows) ([]Permission, error) {
	items := make([]Permission, 0)
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.SubjectUserID, &p.ResourceID, &p.ResourceKind, &p.Role, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}
	return items, nil
}

// ---- versions ----

const versionColumns = `
	id, document_id, author_id, major, minor, patch, tier, description,
	status, is_selected, is_released, full_snapshot, patch_set, created_at
`

func (s *PostgresStore) InsertVersion(ctx context.Context, v version.Version) error {
	patchSet, err := marshalPatchSet(v.Patches)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO document_versions (
			id, document_id, author_id, major, minor, patch, tier, description,
			status, is_selected, is_released, full_snapshot, patch_set
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		v.ID, v.DocumentID, v.AuthorID,
		v.Triple.Major, v.Triple.Minor, v.Triple.Patch,
		string(v.Tier), v.Description, string(v.Status),
		v.Selected, v.Released,
		nullableJSON(v.Snapshot), patchSet,
	)
	if err != nil {
		// The unique index on (document_id, major, minor, patch) is the
		// authority under concurrent creates; surface it as the domain
		// error rather than a generic failure.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return version.ErrDuplicateVersion
		}
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, documentID string) ([]version.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM document_versions
		WHERE document_id=$1
		ORDER BY created_at ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	items := make([]version.Version, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetVersion(ctx context.Context, versionID string) (version.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM document_versions
		WHERE id=$1
	`, versionID)
	return scanVersion(row)
}

func (s *PostgresStore) UpdateVersionMeta(ctx context.Context, versionID string, description *string, released *bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE document_versions
		SET description = COALESCE($2, description),
			is_released = COALESCE($3, is_released)
		WHERE id=$1
	`, versionID, description, released)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update version rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteVersion(ctx context.Context, versionID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM document_versions WHERE id=$1 AND is_selected=FALSE
	`, versionID)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete version rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApproveVersion runs the whole approval as one transaction: the target
// becomes visible and the selection cascade is a single UPDATE keyed by the
// cut timestamp, so a cancelled request can never leave a torn prefix.
// When the approved version carries a full snapshot it is written to the
// document's materialized content cache.
func (s *PostgresStore) ApproveVersion(ctx context.Context, documentID, versionID string, cut time.Time, snapshot json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE document_versions SET status='visible'
		WHERE id=$1 AND document_id=$2 AND status='pending'
	`, versionID, documentID)
	if err != nil {
		return fmt.Errorf("approve version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve version rows: %w", err)
	}
	if affected == 0 {
		return version.ErrNotPending
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE document_versions SET is_selected = (created_at <= $2)
		WHERE document_id=$1
	`, documentID, cut); err != nil {
		return fmt.Errorf("selection cascade: %w", err)
	}

	if len(snapshot) > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents SET materialized_content=$2, updated_at=NOW() WHERE id=$1
		`, documentID, []byte(snapshot)); err != nil {
			return fmt.Errorf("refresh materialized content: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve: %w", err)
	}
	return nil
}

// RejectVersion deletes a pending version outright. Returns false when the
// version was not pending (or does not exist).
func (s *PostgresStore) RejectVersion(ctx context.Context, documentID, versionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM document_versions
		WHERE id=$1 AND document_id=$2 AND status='pending'
	`, versionID, documentID)
	if err != nil {
		return false, fmt.Errorf("reject version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject version rows: %w", err)
	}
	return affected > 0, nil
}

// ---- scanning helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (version.Version, error) {
	var v version.Version
	var tier, status string
	var snapshot, patchSet []byte
	err := row.Scan(
		&v.ID, &v.DocumentID, &v.AuthorID,
		&v.Triple.Major, &v.Triple.Minor, &v.Triple.Patch,
		&tier, &v.Description, &status,
		&v.Selected, &v.Released,
		&snapshot, &patchSet, &v.CreatedAt,
	)
	if err != nil {
		return version.Version{}, err
	}
	v.Tier = version.Tier(tier)
	v.Status = version.Status(status)
	v.Snapshot = snapshot
	if len(patchSet) > 0 {
		if err := json.Unmarshal(patchSet, &v.Patches); err != nil {
			return version.Version{}, fmt.Errorf("decode patch set: %w", err)
		}
	}
	return v, nil
}

func marshalPatchSet(patches []version.Patch) ([]byte, error) {
	if len(patches) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(patches)
	if err != nil {
		return nil, fmt.Errorf("encode patch set: %w", err)
	}
	return payload, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
