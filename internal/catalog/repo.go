package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/componentkit/internal/apperr"
	"github.com/starford/componentkit/internal/models"
)

// Package is one catalog row.
type Package struct {
	Category    models.Category `json:"type"`
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	Version     string          `json:"version"`
	ContentHash string          `json:"contentHash"`
	Description string          `json:"description"`
	DownloadURL string          `json:"downloadUrl"`
	SizeBytes   int64           `json:"sizeBytes"`
	Checksum    *string         `json:"checksum"`
	HasStyles   bool            `json:"hasStyles"`
	HasScripts  bool            `json:"hasScripts"`
	HasModules  bool            `json:"hasModules"`
	Requires    []string        `json:"requires"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Ref returns the graph key of the package.
func (p *Package) Ref() models.Ref {
	return models.Ref{Category: p.Category, Name: p.Name}
}

// Entry is a package plus the text indexed for search.
type Entry struct {
	Package
	Body string
}

// SearchResult is one search hit.
type SearchResult struct {
	Category    models.Category `json:"type"`
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	Snippet     string          `json:"snippet"`
}

const selectColumns = `category, name, display_name, version, content_hash, description,
	download_url, size_bytes, checksum, has_styles, has_scripts, has_modules, requires, updated_at`

// Upsert inserts or replaces a package and its FTS entry within a transaction.
func (db *DB) Upsert(e Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	requires := e.Requires
	if requires == nil {
		requires = []string{}
	}
	requiresJSON, _ := json.Marshal(requires)
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO packages (category, name, display_name, version, content_hash, description,
			download_url, size_bytes, checksum, has_styles, has_scripts, has_modules, requires, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, name) DO UPDATE SET
			display_name = excluded.display_name,
			version      = excluded.version,
			content_hash = excluded.content_hash,
			description  = excluded.description,
			download_url = excluded.download_url,
			size_bytes   = excluded.size_bytes,
			checksum     = excluded.checksum,
			has_styles   = excluded.has_styles,
			has_scripts  = excluded.has_scripts,
			has_modules  = excluded.has_modules,
			requires     = excluded.requires,
			body         = excluded.body,
			updated_at   = excluded.updated_at
	`, string(e.Category), e.Name, e.DisplayName, e.Version, e.ContentHash, e.Description,
		e.DownloadURL, e.SizeBytes, e.Checksum, e.HasStyles, e.HasScripts, e.HasModules,
		string(requiresJSON), e.Body, updated)
	if err != nil {
		return fmt.Errorf("catalog: upsert package: %w", err)
	}

	if err := ftsUpsert(tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a package and its FTS entry.
func (db *DB) Delete(ref models.Ref) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, ref); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM packages WHERE category = ? AND name = ?`, string(ref.Category), ref.Name); err != nil {
		return fmt.Errorf("catalog: delete package: %w", err)
	}
	return tx.Commit()
}

// Hashes returns the stored content hash of every package.
func (db *DB) Hashes() (map[models.Ref]string, error) {
	rows, err := db.conn.Query(`SELECT category, name, content_hash FROM packages`)
	if err != nil {
		return nil, fmt.Errorf("catalog: hashes: %w", err)
	}
	defer rows.Close()
	out := make(map[models.Ref]string)
	for rows.Next() {
		var cat, name, hash string
		if err := rows.Scan(&cat, &name, &hash); err != nil {
			return nil, err
		}
		out[models.Ref{Category: models.Category(cat), Name: name}] = hash
	}
	return out, rows.Err()
}

// List returns packages ordered by category then name. An empty category
// lists both.
func (db *DB) List(category models.Category) ([]Package, error) {
	query := `SELECT ` + selectColumns + ` FROM packages`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY category, name`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	out := []Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Get returns one package or an error wrapping apperr.ErrNotFound.
func (db *DB) Get(ref models.Ref) (*Package, error) {
	row := db.conn.QueryRow(`SELECT `+selectColumns+` FROM packages WHERE category = ? AND name = ?`,
		string(ref.Category), ref.Name)
	p, err := scanPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: %s: %w", ref, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(s rowScanner) (*Package, error) {
	var (
		p        Package
		cat      string
		checksum sql.NullString
		requires string
	)
	err := s.Scan(&cat, &p.Name, &p.DisplayName, &p.Version, &p.ContentHash, &p.Description,
		&p.DownloadURL, &p.SizeBytes, &checksum, &p.HasStyles, &p.HasScripts, &p.HasModules,
		&requires, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Category = models.Category(cat)
	if checksum.Valid {
		v := checksum.String
		p.Checksum = &v
	}
	if err := json.Unmarshal([]byte(requires), &p.Requires); err != nil || p.Requires == nil {
		p.Requires = []string{}
	}
	return &p, nil
}
