// Package generator runs component packaging as a build pipeline stage: scan
// the component library, write per-component and bundle archives plus
// manifest.json, and merge the output back into the build's file set.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/componentkit/internal/apperr"
	"github.com/starford/componentkit/internal/build"
	"github.com/starford/componentkit/internal/depgraph"
	"github.com/starford/componentkit/internal/installer"
	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/packager"
	"github.com/starford/componentkit/internal/scanner"
	"github.com/starford/componentkit/internal/storage"
)

// MetadataKey is the build metadata entry holding the package listing.
const MetadataKey = "componentPackages"

// ManifestFile is the name of the downloads manifest inside the output dir.
const ManifestFile = "manifest.json"

// Options configures the stage. Paths are relative to the build directory.
type Options struct {
	ComponentsPath    string
	ExamplesPath      string
	OutputPath        string // under the build destination; also the URL base path
	CreateBundle      bool
	GenerateChecksums bool
	DownloadBaseURL   string
	Version           string // overrides the package.json version when set
	Logger            *slog.Logger
	Now               func() time.Time

	// OnComplete, when set, receives the result of each successful Plugin run.
	OnComplete func(*Result)
}

// DefaultOptions returns the conventional library layout.
func DefaultOptions() Options {
	return Options{
		ComponentsPath:    "lib/layouts/components",
		ExamplesPath:      "lib/layouts/components/examples",
		OutputPath:        "downloads",
		CreateBundle:      true,
		GenerateChecksums: true,
		DownloadBaseURL:   installer.DefaultDownloadBaseURL,
	}
}

// Packages is the metadata published to the rest of the build.
type Packages struct {
	Sections []*models.PackageMeta `json:"sections"`
	Partials []*models.PackageMeta `json:"partials"`
	Bundle   *models.BundleMeta    `json:"bundle"`
}

// Result reports one generation run.
type Result struct {
	Manifest  *models.DownloadsManifest
	Set       models.ComponentSet
	OutputDir string

	// Files are the paths written by the run, relative to OutputDir.
	Files []string
}

// Generator is the packaging stage.
type Generator struct {
	opts Options
}

// New returns a Generator. Zero-valued paths fall back to DefaultOptions.
func New(opts Options) *Generator {
	def := DefaultOptions()
	if opts.ComponentsPath == "" {
		opts.ComponentsPath = def.ComponentsPath
	}
	if opts.ExamplesPath == "" {
		opts.ExamplesPath = def.ExamplesPath
	}
	if opts.OutputPath == "" {
		opts.OutputPath = def.OutputPath
	}
	if opts.DownloadBaseURL == "" {
		opts.DownloadBaseURL = def.DownloadBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{opts: opts}
}

// Plugin adapts the generator to the build pipeline.
func (g *Generator) Plugin() build.Plugin {
	return func(ctx context.Context, files build.Files, b *build.Build) error {
		res, err := g.Run(ctx, b)
		if err != nil {
			g.opts.Logger.Error("component package generation failed", slog.String("error", err.Error()))
			return err
		}
		if err := g.inject(files, res); err != nil {
			return err
		}
		if g.opts.OnComplete != nil {
			g.opts.OnComplete(res)
		}
		return nil
	}
}

// Run generates every archive and the manifest under the build destination
// and records the listing in the build metadata.
func (g *Generator) Run(ctx context.Context, b *build.Build) (*Result, error) {
	logger := g.opts.Logger
	version, err := g.version(b.Directory)
	if err != nil {
		return nil, err
	}

	// Archives of removed components must not outlive them.
	outputDir := filepath.Join(b.DestinationPath(), filepath.FromSlash(g.opts.OutputPath))
	if err := os.RemoveAll(outputDir); err != nil {
		return nil, fmt.Errorf("generator: reset output: %w", err)
	}
	store, err := storage.OpenFS(outputDir)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	for _, c := range []models.Category{models.CategorySection, models.CategoryPartial} {
		if err := store.MkdirAll(c.Dir()); err != nil {
			return nil, fmt.Errorf("generator: %w", err)
		}
	}

	set, err := scanner.ScanAll(ctx, filepath.Join(b.Directory, g.opts.ComponentsPath), scanner.Options{
		ProjectRoot:    b.Directory,
		ExamplesPath:   g.opts.ExamplesPath,
		ComponentsPath: g.opts.ComponentsPath,
		Version:        version,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	graph := depgraph.Build(set)
	gen := installer.NewGenerator(graph,
		installer.WithDownloadBaseURL(g.opts.DownloadBaseURL),
		installer.WithLogger(logger))
	pk := packager.New(store, gen, g.opts.OutputPath, logger)

	sections, err := g.packageAll(ctx, pk, set.Sections)
	if err != nil {
		return nil, err
	}
	partials, err := g.packageAll(ctx, pk, set.Partials)
	if err != nil {
		return nil, err
	}

	var bundle *models.BundleMeta
	if g.opts.CreateBundle {
		bundle, err = pk.CreateBundle(set, "", version, g.opts.GenerateChecksums)
		if err != nil {
			return nil, err
		}
	}

	manifest := &models.DownloadsManifest{
		Generated: g.opts.Now().UTC(),
		Version:   version,
		BasePath:  g.opts.OutputPath,
		Sections:  sections,
		Partials:  partials,
		Bundle:    bundle,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("generator: manifest: %w", err)
	}
	if err := store.Write(ManifestFile, data, 0o644); err != nil {
		return nil, fmt.Errorf("generator: manifest: %w", err)
	}

	if b.Metadata == nil {
		b.Metadata = map[string]any{}
	}
	b.Metadata[MetadataKey] = Packages{Sections: sections, Partials: partials, Bundle: bundle}

	logger.Info("component packages generated",
		slog.Int("sections", len(sections)),
		slog.Int("partials", len(partials)),
		slog.Bool("bundle", bundle != nil),
		slog.String("version", version))
	return &Result{Manifest: manifest, Set: set, OutputDir: outputDir, Files: written(set, bundle != nil)}, nil
}

func (g *Generator) packageAll(ctx context.Context, pk *packager.Packager, list []*models.Component) ([]*models.PackageMeta, error) {
	out := make([]*models.PackageMeta, len(list))
	eg, egctx := errgroup.WithContext(ctx)
	for i, c := range list {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			meta, err := pk.CreateComponentPackage(c, c.Category.Dir(), g.opts.GenerateChecksums)
			if err != nil {
				return err
			}
			out[i] = meta
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// written lists the output-relative paths produced by one run.
func written(set models.ComponentSet, withBundle bool) []string {
	out := make([]string, 0, set.Len()+2)
	for _, c := range set.All() {
		out = append(out, path.Join(c.Category.Dir(), c.Name+".zip"))
	}
	if withBundle {
		out = append(out, packager.BundleName)
	}
	return append(out, ManifestFile)
}

// version returns the configured override or the project package.json version.
func (g *Generator) version(dir string) (string, error) {
	if g.opts.Version != "" {
		if !models.ValidVersion(g.opts.Version) {
			return "", fmt.Errorf("generator: version %q: %w", g.opts.Version, apperr.ErrInvalidInput)
		}
		return g.opts.Version, nil
	}
	return ProjectVersion(dir)
}

// ProjectVersion reads the "version" field of <dir>/package.json.
func ProjectVersion(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return "", fmt.Errorf("generator: project version: %w", err)
	}
	var pkg struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("generator: project version: %w", err)
	}
	if pkg.Version == "" {
		return "", errors.New("generator: project version: package.json has no version")
	}
	if !models.ValidVersion(pkg.Version) {
		return "", fmt.Errorf("generator: project version %q: %w", pkg.Version, apperr.ErrInvalidInput)
	}
	return pkg.Version, nil
}

// inject adds the files of res to files so the output survives the
// destination clean that follows the plugin stage.
func (g *Generator) inject(files build.Files, res *Result) error {
	store, err := storage.NewFS(res.OutputDir)
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	modes := make(map[string]fs.FileMode)
	list, err := store.List("")
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	for _, fi := range list {
		modes[fi.Path] = fi.Mode.Perm()
	}
	for _, rel := range res.Files {
		data, err := store.Read(rel)
		if err != nil {
			return fmt.Errorf("generator: %w", err)
		}
		files[path.Join(g.opts.OutputPath, rel)] = &build.File{Contents: data, Mode: modes[rel]}
	}
	return nil
}
