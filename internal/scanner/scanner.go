// Package scanner builds component records from a component library directory.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/componentkit/internal/apperr"
	"github.com/starford/componentkit/internal/checksum"
	"github.com/starford/componentkit/internal/examples"
	"github.com/starford/componentkit/internal/models"
)

// Options controls a single Scan.
type Options struct {
	Root           string // directory whose subdirectories are components
	Category       models.Category
	ProjectRoot    string
	ExamplesPath   string
	ComponentsPath string
	Version        string
	Logger         *slog.Logger
}

// Scan reads every immediate subdirectory of opts.Root that carries a
// manifest.json. A missing root yields an empty list. Components are returned
// in lexical directory order.
func Scan(ctx context.Context, opts Options) ([]*models.Component, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.Category.Valid() {
		return nil, fmt.Errorf("scanner: category %q: %w", opts.Category, apperr.ErrInvalidInput)
	}

	entries, err := os.ReadDir(opts.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.Component{}, nil
		}
		return nil, fmt.Errorf("scanner: read %s: %w", opts.Root, err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !models.ValidName(e.Name()) {
			logger.Warn("scanner: skipping directory with unsafe name",
				slog.String("category", string(opts.Category)),
				slog.String("component", e.Name()))
			continue
		}
		dirs = append(dirs, e.Name())
	}
	sort.Strings(dirs)

	loader := examples.NewLoader(opts.ProjectRoot, opts.ExamplesPath, logger)
	results := make([]*models.Component, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := scanOne(opts, loader, logger, name)
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*models.Component, 0, len(results))
	for _, c := range results {
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// scanOne returns nil, nil when the directory is not a component.
func scanOne(opts Options, loader *examples.Loader, logger *slog.Logger, name string) (*models.Component, error) {
	dir := filepath.Join(opts.Root, name)

	manifestData, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("scanner: no manifest.json, skipping",
				slog.String("category", string(opts.Category)),
				slog.String("component", name))
			return nil, nil
		}
		return nil, fmt.Errorf("scanner: %s: read manifest: %w", name, err)
	}
	manifest, err := models.ParseManifest(manifestData)
	if err != nil {
		return nil, fmt.Errorf("scanner: %s: %w: %w", name, apperr.ErrInvalidComponent, err)
	}

	template, err := os.ReadFile(filepath.Join(dir, name+".njk"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scanner: %s: missing template %s.njk: %w", name, name, apperr.ErrInvalidComponent)
		}
		return nil, fmt.Errorf("scanner: %s: read template: %w", name, err)
	}

	files := models.Files{Template: string(template)}
	if files.Styles, err = readOptional(filepath.Join(dir, name+".css")); err != nil {
		return nil, fmt.Errorf("scanner: %s: %w", name, err)
	}
	if files.Scripts, err = readOptional(filepath.Join(dir, name+".js")); err != nil {
		return nil, fmt.Errorf("scanner: %s: %w", name, err)
	}
	if files.Modules, err = readModules(filepath.Join(dir, "modules")); err != nil {
		return nil, fmt.Errorf("scanner: %s: %w", name, err)
	}
	if files.Readme, err = readOptional(filepath.Join(dir, "README.md")); err != nil {
		return nil, fmt.Errorf("scanner: %s: %w", name, err)
	}

	return &models.Component{
		Name:        name,
		Category:    opts.Category,
		Path:        dir,
		Version:     opts.Version,
		ContentHash: checksum.ContentHash(files),
		Manifest:    manifest,
		Files:       files,
		Examples:    loader.Load(name, dir, opts.Category),
		Requires:    manifest.Requires(),
	}, nil
}

// readOptional returns "" for a missing file.
func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}

// readModules collects every .js file under dir. WalkDir visits entries in
// lexical order, which fixes the module order used by the content hash.
func readModules(dir string) ([]models.Module, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat modules: %w", err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	var mods []models.Module
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".js") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		mods = append(mods, models.Module{Path: filepath.ToSlash(rel), Content: string(data)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk modules: %w", err)
	}
	return mods, nil
}

// ScanAll scans both categories under componentsDir using the library layout
// sections/ and _partials/.
func ScanAll(ctx context.Context, componentsDir string, base Options) (models.ComponentSet, error) {
	var set models.ComponentSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts := base
		opts.Root = filepath.Join(componentsDir, examples.SourceDir(models.CategorySection))
		opts.Category = models.CategorySection
		list, err := Scan(gctx, opts)
		set.Sections = list
		return err
	})
	g.Go(func() error {
		opts := base
		opts.Root = filepath.Join(componentsDir, examples.SourceDir(models.CategoryPartial))
		opts.Category = models.CategoryPartial
		list, err := Scan(gctx, opts)
		set.Partials = list
		return err
	})
	if err := g.Wait(); err != nil {
		return models.ComponentSet{}, err
	}
	return set, nil
}
