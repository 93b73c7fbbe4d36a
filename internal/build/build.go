// Package build is a small static-site build pipeline: read a source tree
// into memory, run plugins over it, clean the destination, and write the
// result.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/starford/componentkit/internal/storage"
)

// File is one entry of the in-memory file set.
type File struct {
	Contents []byte
	Mode     fs.FileMode
}

// Files maps slash-separated destination-relative paths to contents.
type Files map[string]*File

// Keys returns the file paths in lexical order.
func (f Files) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Plugin transforms the file set. Returning an error aborts the build.
type Plugin func(ctx context.Context, files Files, b *Build) error

// Build holds pipeline configuration and shared metadata.
type Build struct {
	Directory   string // project root; Source and Destination are relative to it
	Source      string
	Destination string
	Clean       bool
	Ignore      []string // base-name glob patterns skipped when reading the source
	Metadata    map[string]any
	Logger      *slog.Logger

	plugins []Plugin
}

// New returns a Build rooted at dir with the conventional defaults.
func New(dir string) *Build {
	return &Build{
		Directory:   dir,
		Source:      "src",
		Destination: "build",
		Clean:       true,
		Ignore:      []string{".DS_Store"},
		Metadata:    map[string]any{},
		Logger:      slog.Default(),
	}
}

// Use appends a plugin.
func (b *Build) Use(p Plugin) *Build {
	b.plugins = append(b.plugins, p)
	return b
}

// SourcePath returns the absolute source directory.
func (b *Build) SourcePath() string {
	return b.resolve(b.Source)
}

// DestinationPath returns the absolute destination directory.
func (b *Build) DestinationPath() string {
	return b.resolve(b.Destination)
}

func (b *Build) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.Directory, p)
}

// Run executes the pipeline. The destination is cleaned after the plugins
// have run, so plugins that write to disk must also add their output to files.
func (b *Build) Run(ctx context.Context) (Files, error) {
	if b.Metadata == nil {
		b.Metadata = map[string]any{}
	}
	if b.Logger == nil {
		b.Logger = slog.Default()
	}

	files, err := b.Read()
	if err != nil {
		return nil, err
	}
	for _, p := range b.plugins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p(ctx, files, b); err != nil {
			return nil, fmt.Errorf("build: plugin: %w", err)
		}
	}
	if b.Clean {
		if err := os.RemoveAll(b.DestinationPath()); err != nil {
			return nil, fmt.Errorf("build: clean: %w", err)
		}
	}
	if err := b.Write(files); err != nil {
		return nil, err
	}
	b.Logger.Info("build complete",
		slog.String("destination", b.DestinationPath()),
		slog.Int("files", len(files)))
	return files, nil
}

func (b *Build) ignored(name string) bool {
	for _, pattern := range b.Ignore {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Read loads the source tree. A missing source directory yields an empty set.
func (b *Build) Read() (Files, error) {
	root := b.SourcePath()
	files := Files{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root && errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return walkErr
		}
		if b.ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = &File{Contents: data, Mode: info.Mode().Perm()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("build: read source: %w", err)
	}
	return files, nil
}

// Write stores every file under the destination.
func (b *Build) Write(files Files) error {
	store, err := storage.OpenFS(b.DestinationPath())
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	for _, key := range files.Keys() {
		f := files[key]
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		if err := store.Write(key, f.Contents, mode); err != nil {
			return fmt.Errorf("build: write %s: %w", key, err)
		}
	}
	return nil
}
