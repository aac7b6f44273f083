package export

import (
	"context"
	"fmt"
	"time"
)

// DocumentInfo is the metadata the exporter needs about a document.
type DocumentInfo struct {
	ID    string
	Title string
}

// VersionInfo is the metadata the exporter needs about a version.
type VersionInfo struct {
	ID          string
	Semver      string
	Description string
	AuthorName  string
}

// DataStore supplies the exporter with document metadata and the
// reconstructed content at a given version.
type DataStore interface {
	GetExportDocument(ctx context.Context, documentID string) (DocumentInfo, error)
	GetEffectiveContent(ctx context.Context, documentID, versionID string) (map[string]any, VersionInfo, error)
}

type Service struct {
	store DataStore
}

func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export reconstructs the requested version and renders it in the
// requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	doc, err := s.store.GetExportDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	content, info, err := s.store.GetEffectiveContent(ctx, req.DocumentID, req.VersionID)
	if err != nil {
		return nil, fmt.Errorf("get effective content: %w", err)
	}

	html, err := RenderDocumentHTML(TemplateData{
		Title:       doc.Title,
		Semver:      info.Semver,
		Description: info.Description,
		Author:      info.AuthorName,
		GeneratedAt: time.Now(),
		ContentHTML: ContentToHTML(content),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	filename := sanitizeFilename(doc.Title) + "-v" + info.Semver
	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: filename + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return renderPDF(html, filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}
