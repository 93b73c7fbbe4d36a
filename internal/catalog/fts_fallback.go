//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"

	"github.com/starford/componentkit/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the packages table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ Entry) error { return nil }

func ftsDelete(_ *sql.Tx, _ models.Ref) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT category, name, display_name, substr(description, 1, 200)
		FROM packages
		WHERE name LIKE ? OR description LIKE ? OR body LIKE ?
		ORDER BY category, name
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	out := []SearchResult{}
	for rows.Next() {
		var (
			r   SearchResult
			cat string
		)
		if err := rows.Scan(&cat, &r.Name, &r.DisplayName, &r.Snippet); err != nil {
			return nil, err
		}
		r.Category = models.Category(cat)
		out = append(out, r)
	}
	return out, rows.Err()
}
