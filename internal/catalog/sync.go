package catalog

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/starford/componentkit/internal/models"
)

// Entries builds catalog rows from a generation run. The indexed body is the
// component README, falling back to its template.
func Entries(manifest *models.DownloadsManifest, set models.ComponentSet) []Entry {
	var out []Entry
	add := func(metas []*models.PackageMeta) {
		for _, m := range metas {
			e := Entry{Package: Package{
				Category:    m.Type,
				Name:        m.Name,
				DisplayName: m.DisplayName,
				Version:     m.Version,
				ContentHash: m.ContentHash,
				DownloadURL: m.DownloadURL,
				SizeBytes:   m.SizeBytes,
				Checksum:    m.Checksum,
				HasStyles:   m.HasStyles,
				HasScripts:  m.HasScripts,
				HasModules:  m.HasModules,
				Requires:    m.Requires,
				UpdatedAt:   manifest.Generated,
			}}
			if c, ok := set.Lookup(m.Ref()); ok {
				e.Description = c.Manifest.Description()
				e.Body = c.Files.Readme
				if strings.TrimSpace(e.Body) == "" {
					e.Body = c.Files.Template
				}
			}
			out = append(out, e)
		}
	}
	add(manifest.Partials)
	add(manifest.Sections)
	return out
}

// Sync brings the catalog up to date with entries:
//   - new packages and packages whose content hash changed are upserted
//   - packages absent from entries are deleted
//
// It returns the refs that changed, upserts first.
func Sync(db Catalog, entries []Entry, logger *slog.Logger) ([]models.Ref, error) {
	if logger == nil {
		logger = slog.Default()
	}
	hashes, err := db.Hashes()
	if err != nil {
		return nil, err
	}

	changed := []models.Ref{}
	current := make(map[models.Ref]struct{}, len(entries))
	for _, e := range entries {
		ref := e.Ref()
		current[ref] = struct{}{}
		if prev, ok := hashes[ref]; ok && prev == e.ContentHash {
			continue
		}
		if err := db.Upsert(e); err != nil {
			logger.Warn("sync: upsert failed", slog.String("package", ref.String()), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("package", ref.String()))
		changed = append(changed, ref)
	}

	var stale []models.Ref
	for ref := range hashes {
		if _, ok := current[ref]; !ok {
			stale = append(stale, ref)
		}
	}
	sortRefs(stale)
	for _, ref := range stale {
		if err := db.Delete(ref); err != nil {
			logger.Warn("sync: delete failed", slog.String("package", ref.String()), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("package", ref.String()))
		changed = append(changed, ref)
	}
	return changed, nil
}

func sortRefs(refs []models.Ref) {
	slices.SortFunc(refs, func(a, b models.Ref) int {
		if c := cmp.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
