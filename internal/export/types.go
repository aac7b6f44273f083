// Package export renders a version's effective content to HTML or PDF.
package export

import "errors"

// Format is the requested output format.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Request describes one export.
type Request struct {
	DocumentID string
	VersionID  string
	Format     Format
}

// Result is a rendered artifact.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")

	ErrUnsupportedFormat = errors.New("unsupported export format")
)
