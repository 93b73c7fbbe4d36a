//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/componentkit/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS packages_fts USING fts5(
			category UNINDEXED,
			name,
			display_name UNINDEXED,
			description,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, e Entry) error {
	if err := ftsDelete(tx, e.Ref()); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO packages_fts (category, name, display_name, description, body) VALUES (?, ?, ?, ?, ?)`,
		string(e.Category), e.Name, e.DisplayName, e.Description, e.Body)
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, ref models.Ref) error {
	_, err := tx.Exec(`DELETE FROM packages_fts WHERE category = ? AND name = ?`, string(ref.Category), ref.Name)
	if err != nil {
		return fmt.Errorf("catalog: delete fts: %w", err)
	}
	return nil
}

// matchQuery quotes each term so names like "hero-banner" are not parsed as
// FTS5 operators.
func matchQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// Search performs an FTS5 full-text search and returns matches with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	q := matchQuery(query)
	if q == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT category,
		       name,
		       display_name,
		       snippet(packages_fts, 3, '<b>', '</b>', '...', 32)
		FROM packages_fts
		WHERE packages_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, q, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

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
