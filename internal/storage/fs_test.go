package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("PK\x03\x04 archive bytes")
	if err := s.Write("hero.zip", content, 0o644); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("hero.zip")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirsAndSetsMode(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("a/b/install.sh", []byte("#!/bin/bash\n"), 0o755); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "a", "b", "install.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
}

func TestCreateCommit(t *testing.T) {
	s := tempRoot(t)
	w, err := s.Create("sections/hero.zip", 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("part1 ")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read("sections/hero.zip"); err == nil {
		t.Error("file visible before commit")
	}
	if _, err := w.Write([]byte("part2")); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read("sections/hero.zip")
	if err != nil || string(got) != "part1 part2" {
		t.Errorf("got %q, %v", got, err)
	}
	if err := w.Abort(); err != nil {
		t.Errorf("Abort after Commit: %v", err)
	}
}

func TestCreateAbort(t *testing.T) {
	s := tempRoot(t)
	w, err := s.Create("bundle.zip", 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("partial"))
	if err := w.Abort(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read("bundle.zip"); err == nil {
		t.Error("aborted file should not exist")
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".componentkit-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("manifest.json", []byte("{}"), 0o644)
	_ = s.Write("sections/hero.zip", []byte("zip"), 0o644)
	_ = s.Write("partials/text.zip", []byte("zip"), 0o600)

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[0].Path != "manifest.json" || items[1].Path != "partials/text.zip" || items[2].Path != "sections/hero.zip" {
		t.Errorf("unexpected paths: %+v", items)
	}
	if items[1].Mode != 0o600 || items[2].Size != 3 {
		t.Errorf("unexpected metadata: %+v", items)
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempRoot(t)
	items, err := s.List("nope")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("items = %v", items)
	}
}

func TestRemove(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("sections/hero.zip", []byte("zip"), 0o644)
	if err := s.Remove("sections"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read("sections/hero.zip"); err == nil {
		t.Error("file should be gone")
	}
	if err := s.Remove("sections"); err != nil {
		t.Errorf("removing a missing path: %v", err)
	}
	if err := s.Remove(""); err == nil {
		t.Error("removing the root must fail")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.zip",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x"), 0o644); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestOpenFSCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out", "downloads")
	s, err := OpenFS(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.MkdirAll("sections"); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(filepath.Join(root, "sections")); err != nil || !info.IsDir() {
		t.Errorf("sections dir not created: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "componentkit-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
