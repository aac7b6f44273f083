package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultDocument ResultType = "document"
	ResultVersion  ResultType = "version"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType `json:"type"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	DocumentID string     `json:"documentId"`
	Semver     string     `json:"semver,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text             string
	FilterType       ResultType // empty = all types
	FilterDocumentID string
	Limit            int
	Offset           int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// DocumentRecord is the data indexed per document.
type DocumentRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// VersionRecord is the data indexed per document version.
type VersionRecord struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	DocumentID  string `json:"documentId"`
	Semver      string `json:"semver"`
	Status      string `json:"status"`
}
