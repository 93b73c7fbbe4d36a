// Package verify audits a generated downloads tree: every shell script
// inside every archive must parse as bash without empty branches, and every
// checksum recorded in manifest.json must match the archive on disk.
package verify

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/componentkit/internal/checksum"
	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/shell"
)

// Issue is one failed check.
type Issue struct {
	Archive string `json:"archive"`
	Entry   string `json:"entry,omitempty"`
	Problem string `json:"problem"`
}

func (i Issue) String() string {
	if i.Entry == "" {
		return i.Archive + ": " + i.Problem
	}
	return i.Archive + ":" + i.Entry + ": " + i.Problem
}

// Report summarizes a Downloads run.
type Report struct {
	Archives  int     `json:"archives"`
	Scripts   int     `json:"scripts"`
	Checksums int     `json:"checksums"`
	Issues    []Issue `json:"issues"`
}

// OK reports whether no issue was found.
func (r *Report) OK() bool { return len(r.Issues) == 0 }

func (r *Report) add(archive, entry, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Archive: archive, Entry: entry, Problem: fmt.Sprintf(format, args...)})
}

// Downloads checks the tree rooted at dir. Problems with individual
// archives are collected in the report; the error is reserved for failures
// to read the tree itself.
func Downloads(dir string) (*Report, error) {
	r := &Report{Issues: []Issue{}}

	var archives []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), ".zip") {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			archives = append(archives, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	for _, rel := range archives {
		r.Archives++
		checkArchive(r, dir, rel)
	}
	if err := checkManifest(r, dir); err != nil {
		return nil, err
	}
	return r, nil
}

func checkArchive(r *Report, dir, rel string) {
	zr, err := zip.OpenReader(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		r.add(rel, "", "open: %v", err)
		return
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".sh") {
			continue
		}
		r.Scripts++
		if f.Mode().Perm()&0o100 == 0 {
			r.add(rel, f.Name, "not executable (mode %v)", f.Mode().Perm())
		}
		rc, err := f.Open()
		if err != nil {
			r.add(rel, f.Name, "open: %v", err)
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			r.add(rel, f.Name, "read: %v", err)
			continue
		}
		script := string(data)
		if err := shell.Validate(path.Base(f.Name), script); err != nil {
			r.add(rel, f.Name, "%v", err)
		}
		if shell.HasEmptyBranch(script) {
			r.add(rel, f.Name, "empty if/else branch")
		}
	}
}

func checkManifest(r *Report, dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	var m models.DownloadsManifest
	if err := json.Unmarshal(data, &m); err != nil {
		r.add("manifest.json", "", "decode: %v", err)
		return nil
	}

	check := func(url string, sum *string, size int64) {
		if sum == nil {
			return
		}
		r.Checksums++
		rel := strings.TrimPrefix(url, "/"+m.BasePath+"/")
		got, err := checksum.File(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			r.add(rel, "", "checksum: %v", err)
			return
		}
		if "sha256:"+got != *sum {
			r.add(rel, "", "checksum mismatch: manifest %s, file sha256:%s", *sum, got)
		}
		if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err == nil && info.Size() != size {
			r.add(rel, "", "size mismatch: manifest %d, file %d", size, info.Size())
		}
	}
	for _, p := range append(append([]*models.PackageMeta{}, m.Sections...), m.Partials...) {
		check(p.DownloadURL, p.Checksum, p.SizeBytes)
	}
	if m.Bundle != nil {
		check(m.Bundle.DownloadURL, m.Bundle.Checksum, m.Bundle.SizeBytes)
	}
	return nil
}
