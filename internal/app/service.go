package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"verjson/api/internal/access"
	"verjson/api/internal/archive"
	"verjson/api/internal/auth"
	"verjson/api/internal/authpw"
	"verjson/api/internal/config"
	"verjson/api/internal/export"
	"verjson/api/internal/rbac"
	"verjson/api/internal/search"
	"verjson/api/internal/store"
	"verjson/api/internal/util"
	"verjson/api/internal/version"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

// CreateVersionInput is the payload for creating a new document version.
type CreateVersionInput struct {
	Semver      string          `json:"semver"`
	Tier        string          `json:"tier"`
	Description string          `json:"description"`
	Snapshot    json.RawMessage `json:"fullSnapshot,omitempty"`
	Patches     []version.Patch `json:"patchSet,omitempty"`
}

// UpdateVersionInput carries the mutable metadata of a version.
type UpdateVersionInput struct {
	Description *string `json:"description"`
	Released    *bool   `json:"isReleased"`
}

type dataStore interface {
	CreateUser(ctx context.Context, user store.User) error
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)

	InsertWorkspace(ctx context.Context, workspace store.Workspace) error
	GetWorkspace(ctx context.Context, workspaceID string) (store.Workspace, error)

	InsertDocument(ctx context.Context, item store.Document) error
	GetDocument(ctx context.Context, documentID string) (store.Document, error)
	ListDocumentsForUser(ctx context.Context, userID string) ([]store.Document, error)
	DocumentInWorkspace(ctx context.Context, documentID, workspaceID string) (bool, error)

	InsertPermission(ctx context.Context, permission store.Permission) error
	AcceptPermission(ctx context.Context, permissionID, userID string) (bool, error)
	DocumentPermission(ctx context.Context, documentID, userID string) (store.Permission, error)
	DocumentPermissionsBypass(ctx context.Context, documentID string) ([]store.Permission, error)
	WorkspacePermission(ctx context.Context, workspaceID, userID string) (store.Permission, error)
	AcceptedWorkspacePermissions(ctx context.Context, userID string) ([]store.Permission, error)

	InsertVersion(ctx context.Context, v version.Version) error
	ListVersions(ctx context.Context, documentID string) ([]version.Version, error)
	GetVersion(ctx context.Context, versionID string) (version.Version, error)
	UpdateVersionMeta(ctx context.Context, versionID string, description *string, released *bool) error
	DeleteVersion(ctx context.Context, versionID string) error
	ApproveVersion(ctx context.Context, documentID, versionID string, cut time.Time, snapshot json.RawMessage) error
	RejectVersion(ctx context.Context, documentID, versionID string) (bool, error)

	Ping(ctx context.Context) error
}

// sessionStore holds refresh sessions and access-token revocations. Both
// the Redis store and the Postgres store satisfy it.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type accessResolver interface {
	Resolve(ctx context.Context, documentID, userID string) (access.Grant, error)
}

type archiveService interface {
	RecordApproval(documentID string, content map[string]any, author, message string) (archive.CommitInfo, error)
	History(documentID string, limit int) ([]archive.CommitInfo, error)
	ContentAt(documentID, hash string) (map[string]any, error)
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexDocument(doc search.DocumentRecord)
	IndexVersion(v search.VersionRecord)
	DeleteVersion(id string)
}

type blobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	resolver accessResolver
	authpw   *authpw.Service
	search   searchService
	archive  archiveService
	exporter *export.Service
	blob     blobStore
}

// Options carries the optional collaborators. Nil fields disable the
// corresponding feature rather than failing startup.
type Options struct {
	Sessions sessionStore
	Search   searchService
	Archive  archiveService
	Blob     blobStore
}

func New(cfg config.Config, dataStore *store.PostgresStore, opts Options) *Service {
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: opts.Sessions,
		resolver: access.NewResolver(dataStore, dataStore),
		authpw:   authpw.NewService(dataStore),
		search:   opts.Search,
		archive:  opts.Archive,
		blob:     opts.Blob,
	}
	if s.sessions == nil {
		s.sessions = dataStore
	}
	s.exporter = export.NewService(&exportSource{service: s})
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

// ---- sessions ----

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// The session store may carry only the user id; re-read the profile.
	if user.DisplayName == "" {
		if full, err := s.store.GetUserByID(ctx, user.ID); err == nil {
			user = full
		}
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ---- workspaces ----

func (s *Service) CreateWorkspace(ctx context.Context, session Session, name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(422, "VALIDATION_ERROR", "name is required", nil)
	}
	workspace := store.Workspace{
		ID:      util.NewID("wsp"),
		Name:    name,
		OwnerID: session.UserID,
	}
	if err := s.store.InsertWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":      workspace.ID,
		"name":    workspace.Name,
		"ownerId": workspace.OwnerID,
	}, nil
}

// ---- documents ----

func (s *Service) CreateDocument(ctx context.Context, session Session, title, workspaceID string) (map[string]any, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(422, "VALIDATION_ERROR", "title is required", nil)
	}

	item := store.Document{
		ID:      util.NewID("doc"),
		Title:   title,
		OwnerID: session.UserID,
	}
	if workspaceID != "" {
		if _, err := s.store.GetWorkspace(ctx, workspaceID); err != nil {
			return nil, domainError(404, "NOT_FOUND", "workspace not found", nil)
		}
		item.WorkspaceID = &workspaceID
	}

	if err := s.store.InsertDocument(ctx, item); err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexDocument(search.DocumentRecord{ID: item.ID, Title: item.Title})
	}
	return documentPayload(item, rbac.RoleOwner), nil
}

func (s *Service) ListDocuments(ctx context.Context, session Session) ([]map[string]any, error) {
	items, err := s.store.ListDocumentsForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, map[string]any{
			"id":        item.ID,
			"title":     item.Title,
			"ownerId":   item.OwnerID,
			"updatedAt": item.UpdatedAt,
		})
	}
	return payload, nil
}

func (s *Service) GetDocument(ctx context.Context, session Session, documentID string) (map[string]any, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, err
	}
	item, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return documentPayload(item, grant.Role), nil
}

func documentPayload(item store.Document, role rbac.Role) map[string]any {
	payload := map[string]any{
		"id":        item.ID,
		"title":     item.Title,
		"ownerId":   item.OwnerID,
		"role":      string(role),
		"createdAt": item.CreatedAt,
		"updatedAt": item.UpdatedAt,
	}
	if item.WorkspaceID != nil {
		payload["workspaceId"] = *item.WorkspaceID
	}
	if len(item.MaterializedContent) > 0 {
		payload["materializedContent"] = json.RawMessage(item.MaterializedContent)
	}
	return payload
}

// ---- versions ----

func (s *Service) ListVersions(ctx context.Context, session Session, documentID string) (map[string]any, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}

	payload := make([]map[string]any, 0, len(versions))
	for _, v := range versions {
		// Pending versions stay invisible to viewers; they only surface
		// through the reviewer workflow.
		if v.Status == version.StatusPending && grant.Role == rbac.RoleViewer {
			continue
		}
		payload = append(payload, versionPayload(v))
	}
	return map[string]any{"versions": payload, "role": string(grant.Role)}, nil
}

func versionPayload(v version.Version) map[string]any {
	return map[string]any{
		"id":          v.ID,
		"documentId":  v.DocumentID,
		"authorId":    v.AuthorID,
		"semver":      v.Triple.String(),
		"tier":        string(v.Tier),
		"description": v.Description,
		"status":      string(v.Status),
		"isSelected":  v.Selected,
		"isReleased":  v.Released,
		"createdAt":   v.CreatedAt,
	}
}

func (s *Service) GetVersionContent(ctx context.Context, session Session, documentID, versionID string) (map[string]any, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}

	content, target, err := version.EffectiveContent(versions, versionID)
	if err != nil {
		return nil, err
	}
	if target.Status == version.StatusPending && grant.Role == rbac.RoleViewer {
		return nil, version.ErrVersionNotFound
	}

	return map[string]any{
		"version": versionPayload(target),
		"content": content,
	}, nil
}

func (s *Service) GetVersionDiff(ctx context.Context, session Session, documentID, fromID, toID string) (map[string]any, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, version.ErrSameVersionDiff
	}
	versions, err := s.store.ListVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}

	fromContent, fromVersion, err := version.EffectiveContent(versions, fromID)
	if err != nil {
		return nil, err
	}
	toContent, toVersion, err := version.EffectiveContent(versions, toID)
	if err != nil {
		return nil, err
	}
	if grant.Role == rbac.RoleViewer &&
		(fromVersion.Status == version.StatusPending || toVersion.Status == version.StatusPending) {
		return nil, version.ErrVersionNotFound
	}

	return map[string]any{
		"entries": version.Diff(fromContent, toContent),
		"from":    map[string]any{"version": versionPayload(fromVersion), "content": fromContent},
		"to":      map[string]any{"version": versionPayload(toVersion), "content": toContent},
	}, nil
}

func (s *Service) CreateVersion(ctx context.Context, session Session, documentID string, input CreateVersionInput) (map[string]any, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, err
	}

	triple, err := version.ParseTriple(input.Semver)
	if err != nil {
		return nil, domainError(422, "VALIDATION_ERROR", err.Error(), nil)
	}
	if input.Tier != "" && !version.ValidTier(input.Tier) {
		return nil, domainError(422, "VALIDATION_ERROR", "tier must be major, minor, or patch", nil)
	}
	if err := version.ValidateSnapshot(input.Snapshot); err != nil {
		return nil, domainError(422, "VALIDATION_ERROR", err.Error(), nil)
	}
	for _, p := range input.Patches {
		if err := p.Validate(); err != nil {
			return nil, domainError(422, "VALIDATION_ERROR", err.Error(), nil)
		}
	}

	existing, err := s.store.ListVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := version.ValidateCreate(existing, triple, grant.Role); err != nil {
		return nil, err
	}

	v := version.Version{
		ID:          util.NewID("ver"),
		DocumentID:  documentID,
		AuthorID:    session.UserID,
		Triple:      triple,
		Tier:        version.Tier(input.Tier),
		Description: strings.TrimSpace(input.Description),
		Status:      version.StatusPending,
		Snapshot:    input.Snapshot,
		Patches:     input.Patches,
		CreatedAt:   time.Now(),
	}
	if v.Tier == "" {
		v.Tier = tierFor(existing, triple)
	}

	if err := s.store.InsertVersion(ctx, v); err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexVersion(search.VersionRecord{
			ID:          v.ID,
			Description: v.Description,
			DocumentID:  v.DocumentID,
			Semver:      v.Triple.String(),
			Status:      string(v.Status),
		})
	}
	return versionPayload(v), nil
}

// tierFor derives the tier from the highest component that moved past the
// latest existing version.
func tierFor(existing []version.Version, triple version.Triple) version.Tier {
	if len(existing) == 0 {
		return version.TierMajor
	}
	latest := existing[0].Triple
	for _, v := range existing[1:] {
		if v.Triple.Encoded() > latest.Encoded() {
			latest = v.Triple
		}
	}
	switch {
	case triple.Major != latest.Major:
		return version.TierMajor
	case triple.Minor != latest.Minor:
		return version.TierMinor
	default:
		return version.TierPatch
	}
}

func (s *Service) UpdateVersion(ctx context.Context, session Session, documentID, versionID string, input UpdateVersionInput) (map[string]any, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, err
	}
	v, err := s.versionInDocument(ctx, documentID, versionID)
	if err != nil {
		return nil, err
	}
	if err := version.ValidateUpdate(v, session.UserID, grant.Role); err != nil {
		return nil, err
	}

	if err := s.store.UpdateVersionMeta(ctx, versionID, input.Description, input.Released); err != nil {
		return nil, err
	}
	if input.Description != nil {
		v.Description = *input.Description
	}
	if input.Released != nil {
		v.Released = *input.Released
	}
	if s.search != nil {
		s.search.IndexVersion(search.VersionRecord{
			ID:          v.ID,
			Description: v.Description,
			DocumentID:  v.DocumentID,
			Semver:      v.Triple.String(),
			Status:      string(v.Status),
		})
	}
	return versionPayload(v), nil
}

func (s *Service) DeleteVersion(ctx context.Context, session Session, documentID, versionID string) error {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return err
	}
	v, err := s.versionInDocument(ctx, documentID, versionID)
	if err != nil {
		return err
	}
	if err := version.ValidateDelete(v, grant.Role); err != nil {
		return err
	}

	if err := s.store.DeleteVersion(ctx, versionID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteVersion(versionID)
	}
	return nil
}

func (s *Service) ApproveVersion(ctx context.Context, session Session, documentID, versionID string) (map[string]any, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, err
	}
	target, err := s.versionInDocument(ctx, documentID, versionID)
	if err != nil {
		return nil, err
	}
	if err := version.ValidateReview(target, grant.Role); err != nil {
		return nil, err
	}

	versions, err := s.store.ListVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}
	updated, cut, err := version.SelectionCut(versions, versionID)
	if err != nil {
		return nil, err
	}

	var snapshot json.RawMessage
	if target.HasSnapshot() {
		snapshot = target.Snapshot
	}
	if err := s.store.ApproveVersion(ctx, documentID, versionID, cut, snapshot); err != nil {
		return nil, err
	}

	if s.archive != nil {
		// The archive commit is best effort; the approval stands even when
		// the audit trail is temporarily unwritable.
		if content, _, err := version.EffectiveContent(updated, versionID); err == nil {
			message := fmt.Sprintf("Approve %s", target.Triple)
			if _, err := s.archive.RecordApproval(documentID, content, session.UserName, message); err != nil {
				log.Printf("archive: record approval %s@%s: %v", documentID, target.Triple, err)
			}
		}
	}
	if s.search != nil {
		s.search.IndexVersion(search.VersionRecord{
			ID:          target.ID,
			Description: target.Description,
			DocumentID:  target.DocumentID,
			Semver:      target.Triple.String(),
			Status:      string(version.StatusVisible),
		})
	}

	payload := make([]map[string]any, 0, len(updated))
	for _, v := range updated {
		payload = append(payload, versionPayload(v))
	}
	return map[string]any{"versions": payload}, nil
}

func (s *Service) RejectVersion(ctx context.Context, session Session, documentID, versionID string) error {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return err
	}
	target, err := s.versionInDocument(ctx, documentID, versionID)
	if err != nil {
		return err
	}
	if err := version.ValidateReview(target, grant.Role); err != nil {
		return err
	}

	ok, err := s.store.RejectVersion(ctx, documentID, versionID)
	if err != nil {
		return err
	}
	if !ok {
		return version.ErrNotPending
	}
	if s.search != nil {
		s.search.DeleteVersion(versionID)
	}
	return nil
}

func (s *Service) versionInDocument(ctx context.Context, documentID, versionID string) (version.Version, error) {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return version.Version{}, err
	}
	if v.DocumentID != documentID {
		return version.Version{}, version.ErrVersionNotFound
	}
	return v, nil
}

// ---- archive ----

func (s *Service) ApprovalHistory(ctx context.Context, session Session, documentID string, limit int) (map[string]any, error) {
	if _, err := s.resolver.Resolve(ctx, documentID, session.UserID); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return map[string]any{"commits": []archive.CommitInfo{}}, nil
	}
	commits, err := s.archive.History(documentID, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"commits": commits}, nil
}

// ApprovedContentAt returns the archived content recorded at one approval
// commit, as listed by ApprovalHistory.
func (s *Service) ApprovedContentAt(ctx context.Context, session Session, documentID, commitHash string) (map[string]any, error) {
	if _, err := s.resolver.Resolve(ctx, documentID, session.UserID); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return nil, domainError(404, "NOT_FOUND", "no archive configured", nil)
	}
	content, err := s.archive.ContentAt(documentID, commitHash)
	if err != nil {
		return nil, domainError(404, "NOT_FOUND", "archived content not found", nil)
	}
	return map[string]any{"hash": commitHash, "content": content}, nil
}

// ---- permissions ----

func (s *Service) ListPermissions(ctx context.Context, session Session, documentID string) (map[string]any, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, err
	}
	if grant.Role != rbac.RoleOwner {
		return nil, access.ErrAccessDenied
	}
	records, err := s.store.DocumentPermissionsBypass(ctx, documentID)
	if err != nil {
		return nil, err
	}
	payload := make([]map[string]any, 0, len(records))
	for _, p := range records {
		payload = append(payload, map[string]any{
			"id":        p.ID,
			"userId":    p.SubjectUserID,
			"role":      p.Role,
			"status":    p.Status,
			"createdAt": p.CreatedAt,
		})
	}
	return map[string]any{"permissions": payload}, nil
}

func (s *Service) InvitePermission(ctx context.Context, session Session, documentID, subjectUserID, role string) (map[string]any, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, err
	}
	if grant.Role != rbac.RoleOwner {
		return nil, access.ErrAccessDenied
	}
	if !rbac.Valid(role) {
		return nil, domainError(422, "VALIDATION_ERROR", "role must be owner, editor, or viewer", nil)
	}
	if _, err := s.store.GetUserByID(ctx, subjectUserID); err != nil {
		return nil, domainError(404, "NOT_FOUND", "user not found", nil)
	}

	permission := store.Permission{
		ID:            util.NewID("prm"),
		SubjectUserID: subjectUserID,
		ResourceID:    documentID,
		ResourceKind:  store.ResourceDocument,
		Role:          role,
		Status:        store.PermissionPending,
	}
	if err := s.store.InsertPermission(ctx, permission); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":     permission.ID,
		"userId": permission.SubjectUserID,
		"role":   permission.Role,
		"status": permission.Status,
	}, nil
}

func (s *Service) AcceptPermission(ctx context.Context, session Session, permissionID string) error {
	ok, err := s.store.AcceptPermission(ctx, permissionID, session.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return domainError(404, "NOT_FOUND", "invitation not found", nil)
	}
	return nil
}

// ---- search ----

func (s *Service) Search(ctx context.Context, session Session, text, filterType, documentID string, limit, offset int) (search.Response, error) {
	if documentID != "" {
		if _, err := s.resolver.Resolve(ctx, documentID, session.UserID); err != nil {
			return search.Response{}, err
		}
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:             text,
		FilterType:       search.ResultType(filterType),
		FilterDocumentID: documentID,
		Limit:            limit,
		Offset:           offset,
	}), nil
}

// ---- export ----

// ExportVersion renders the version and, when object storage is configured,
// keeps a copy of the artifact and returns a time-limited download link.
func (s *Service) ExportVersion(ctx context.Context, session Session, documentID, versionID, format string) (*export.Result, string, error) {
	grant, err := s.resolver.Resolve(ctx, documentID, session.UserID)
	if err != nil {
		return nil, "", err
	}
	target, err := s.versionInDocument(ctx, documentID, versionID)
	if err != nil {
		return nil, "", err
	}
	if target.Status == version.StatusPending && grant.Role == rbac.RoleViewer {
		return nil, "", version.ErrVersionNotFound
	}

	result, err := s.exporter.Export(ctx, export.Request{
		DocumentID: documentID,
		VersionID:  versionID,
		Format:     export.Format(format),
	})
	if err != nil {
		return nil, "", err
	}

	var artifactURL string
	if s.blob != nil {
		key := fmt.Sprintf("%s/%s-%s", documentID, util.ShortID(), result.Filename)
		if err := s.blob.Put(ctx, key, result.Data, result.MimeType); err != nil {
			log.Printf("blob: store export artifact %s: %v", key, err)
		} else if url, err := s.blob.PresignedURL(ctx, key, 24*time.Hour); err != nil {
			log.Printf("blob: presign export artifact %s: %v", key, err)
		} else {
			artifactURL = url
		}
	}
	return result, artifactURL, nil
}

// exportSource adapts the service to the exporter's data needs.
type exportSource struct {
	service *Service
}

func (e *exportSource) GetExportDocument(ctx context.Context, documentID string) (export.DocumentInfo, error) {
	item, err := e.service.store.GetDocument(ctx, documentID)
	if err != nil {
		return export.DocumentInfo{}, err
	}
	return export.DocumentInfo{ID: item.ID, Title: item.Title}, nil
}

func (e *exportSource) GetEffectiveContent(ctx context.Context, documentID, versionID string) (map[string]any, export.VersionInfo, error) {
	versions, err := e.service.store.ListVersions(ctx, documentID)
	if err != nil {
		return nil, export.VersionInfo{}, err
	}
	content, target, err := version.EffectiveContent(versions, versionID)
	if err != nil {
		return nil, export.VersionInfo{}, err
	}

	info := export.VersionInfo{
		ID:          target.ID,
		Semver:      target.Triple.String(),
		Description: target.Description,
	}
	if author, err := e.service.store.GetUserByID(ctx, target.AuthorID); err == nil {
		info.AuthorName = author.DisplayName
	}
	return content, info, nil
}
