// Package packager writes component archives and the aggregate bundle.
package packager

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/starford/componentkit/internal/checksum"
	"github.com/starford/componentkit/internal/examples"
	"github.com/starford/componentkit/internal/installer"
	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/readme"
	"github.com/starford/componentkit/internal/storage"
)

// BundleName is the file name of the aggregate archive.
const BundleName = models.BundleDir + ".zip"

// entryTime is stamped on every archive entry so unchanged inputs produce
// byte-identical archives.
var entryTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Packager writes archives into an output store. URL paths in the returned
// metadata are rooted at /<basePath>.
type Packager struct {
	store     storage.Provider
	installer *installer.Generator
	basePath  string
	logger    *slog.Logger
}

// New returns a Packager writing into store.
func New(store storage.Provider, gen *installer.Generator, basePath string, logger *slog.Logger) *Packager {
	if logger == nil {
		logger = slog.Default()
	}
	if gen == nil {
		gen = installer.NewGenerator(nil)
	}
	return &Packager{store: store, installer: gen, basePath: basePath, logger: logger}
}

// PackageManifest returns the manifest shipped inside an archive: the author
// manifest with contentHash and version set, keys in source order.
func PackageManifest(c *models.Component) ([]byte, error) {
	m := c.Manifest
	if m == nil {
		m = models.NewManifest("name", c.Name)
	}
	data, err := m.With("contentHash", c.ContentHash).With("version", c.Version).Indented()
	if err != nil {
		return nil, fmt.Errorf("packager: %s: manifest: %w", c.Name, err)
	}
	return data, nil
}

type entry struct {
	name string
	data []byte
	mode fs.FileMode
}

// componentEntries lists the files for c under prefix in archive order.
func (p *Packager) componentEntries(c *models.Component, prefix string) ([]entry, error) {
	file := func(name string, data []byte) entry {
		return entry{name: path.Join(prefix, name), data: data, mode: 0o644}
	}

	entries := []entry{file(c.Name+".njk", []byte(c.Files.Template))}
	if c.Files.HasStyles() {
		entries = append(entries, file(c.Name+".css", []byte(c.Files.Styles)))
	}
	if c.Files.HasScripts() {
		entries = append(entries, file(c.Name+".js", []byte(c.Files.Scripts)))
	}
	for _, m := range c.Files.Modules {
		entries = append(entries, file(path.Join("modules", m.Path), []byte(m.Content)))
	}

	manifest, err := PackageManifest(c)
	if err != nil {
		return nil, err
	}
	entries = append(entries, file("manifest.json", manifest))

	switch {
	case c.Examples.Raw != nil:
		entries = append(entries, file("examples.yaml", []byte(*c.Examples.Raw)))
	case len(c.Examples.Structured) > 0:
		dump, err := examples.Dump(c.Examples.Structured)
		if err != nil {
			return nil, fmt.Errorf("packager: %s: %w", c.Name, err)
		}
		entries = append(entries, file("examples.yaml", []byte(dump)))
	}

	doc := c.Files.Readme
	if doc == "" {
		doc = readme.Generate(c, readme.WithResolver(p.installer.Graph().Resolve))
	}
	entries = append(entries, file("README.md", []byte(doc)))

	pkg, err := readme.PackageJSON(c)
	if err != nil {
		return nil, fmt.Errorf("packager: %s: %w", c.Name, err)
	}
	entries = append(entries, file("package.json", pkg))

	script, err := p.installer.InstallScript(c)
	if err != nil {
		return nil, fmt.Errorf("packager: %w", err)
	}
	install := file("install.sh", []byte(script))
	install.mode = 0o755
	entries = append(entries, install)
	return entries, nil
}

// CreateComponentPackage writes <dir>/<name>.zip and returns its metadata.
func (p *Packager) CreateComponentPackage(c *models.Component, dir string, withChecksum bool) (*models.PackageMeta, error) {
	entries, err := p.componentEntries(c, c.Name)
	if err != nil {
		return nil, err
	}
	name := path.Join(dir, c.Name+".zip")
	size, sum, err := p.writeArchive(name, entries, withChecksum)
	if err != nil {
		return nil, fmt.Errorf("packager: %s: %w", c.Ref(), err)
	}

	requires := c.Requires
	if requires == nil {
		requires = []string{}
	}
	return &models.PackageMeta{
		Name:        c.Name,
		DisplayName: c.DisplayName(),
		Version:     c.Version,
		ContentHash: c.ContentHash,
		Type:        c.Category,
		DownloadURL: "/" + path.Join(p.basePath, c.Category.Dir(), c.Name+".zip"),
		Size:        readme.FormatBytes(size),
		SizeBytes:   size,
		Checksum:    sum,
		HasStyles:   c.Files.HasStyles(),
		HasScripts:  c.Files.HasScripts(),
		HasModules:  c.Files.HasModules(),
		Requires:    requires,
	}, nil
}

// CreateBundle writes <dir>/nunjucks-components.zip holding every component
// plus the bundle README and install-all.sh.
func (p *Packager) CreateBundle(set models.ComponentSet, dir, version string, withChecksum bool) (*models.BundleMeta, error) {
	var entries []entry
	for _, c := range append(append([]*models.Component{}, set.Sections...), set.Partials...) {
		ce, err := p.componentEntries(c, path.Join(models.BundleDir, c.Category.Dir(), c.Name))
		if err != nil {
			return nil, err
		}
		entries = append(entries, ce...)
	}

	entries = append(entries, entry{
		name: path.Join(models.BundleDir, "README.md"),
		data: []byte(readme.Bundle(version, set)),
		mode: 0o644,
	})
	script, err := p.installer.BundleScript(set)
	if err != nil {
		return nil, fmt.Errorf("packager: %w", err)
	}
	entries = append(entries, entry{
		name: path.Join(models.BundleDir, "install-all.sh"),
		data: []byte(script),
		mode: 0o755,
	})

	size, sum, err := p.writeArchive(path.Join(dir, BundleName), entries, withChecksum)
	if err != nil {
		return nil, fmt.Errorf("packager: bundle: %w", err)
	}
	return &models.BundleMeta{
		Version:     version,
		DownloadURL: "/" + path.Join(p.basePath, BundleName),
		Size:        readme.FormatBytes(size),
		SizeBytes:   size,
		Checksum:    sum,
	}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// writeArchive streams entries into name through an atomic writer. The
// checksum is taken from the committed file.
func (p *Packager) writeArchive(name string, entries []entry, withChecksum bool) (size int64, sum *string, err error) {
	out, err := p.store.Create(name, 0o644)
	if err != nil {
		return 0, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = out.Abort()
		}
	}()

	counter := &countingWriter{w: out}
	zw := zip.NewWriter(counter)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: entryTime}
		hdr.SetMode(e.mode)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return 0, nil, fmt.Errorf("add %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return 0, nil, fmt.Errorf("write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, nil, fmt.Errorf("close archive: %w", err)
	}
	if err := out.Commit(); err != nil {
		return 0, nil, err
	}
	committed = true

	if withChecksum {
		data, err := p.store.Read(name)
		if err != nil {
			return 0, nil, fmt.Errorf("checksum: %w", err)
		}
		s := "sha256:" + checksum.Sum(data)
		sum = &s
	}
	p.logger.Debug("archive written", slog.String("path", name), slog.Int64("size", counter.n))
	return counter.n, sum, nil
}
