package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
// The tsvector is computed on the fly; the searchable columns are short
// enough that a stored fts column is not worth a migration.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across documents and document_versions
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultDocument {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'document'::text AS type, d.id, d.title,
				''::text AS snippet,
				d.id AS document_id, ''::text AS semver,
				ts_rank(to_tsvector('english', d.title), %s) AS rank
			FROM documents d
			WHERE to_tsvector('english', d.title) @@ %s`, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultVersion {
		verWhere := fmt.Sprintf("to_tsvector('english', v.description) @@ %s", tsQuery)
		if q.FilterDocumentID != "" {
			verWhere += fmt.Sprintf(" AND v.document_id = $%d", argN)
			args = append(args, q.FilterDocumentID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'version'::text AS type, v.id,
				concat(v.major, '.', v.minor, '.', v.patch) AS title,
				ts_headline('english', coalesce(v.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				v.document_id, concat(v.major, '.', v.minor, '.', v.patch) AS semver,
				ts_rank(to_tsvector('english', v.description), %s) AS rank
			FROM document_versions v
			WHERE %s`, tsQuery, tsQuery, verWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, document_id, semver
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.DocumentID, &r.Semver); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DocumentRecord, []VersionRecord, error) {
	docRows, err := p.db.QueryContext(ctx, `
		SELECT id, title FROM documents
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load documents: %w", err)
	}
	defer docRows.Close()

	documents := make([]DocumentRecord, 0)
	for docRows.Next() {
		var d DocumentRecord
		if err := docRows.Scan(&d.ID, &d.Title); err != nil {
			return nil, nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := docRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate documents: %w", err)
	}

	versionRows, err := p.db.QueryContext(ctx, `
		SELECT id, description, document_id,
			concat(major, '.', minor, '.', patch), status
		FROM document_versions
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load versions: %w", err)
	}
	defer versionRows.Close()

	versions := make([]VersionRecord, 0)
	for versionRows.Next() {
		var v VersionRecord
		if err := versionRows.Scan(&v.ID, &v.Description, &v.DocumentID, &v.Semver, &v.Status); err != nil {
			return nil, nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := versionRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate versions: %w", err)
	}

	return documents, versions, nil
}
