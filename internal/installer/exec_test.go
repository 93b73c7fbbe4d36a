package installer

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/componentkit/internal/depgraph"
	"github.com/starford/componentkit/internal/models"
)

// These tests run the generated scripts with a real bash.

func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range append([]string{"bash", "sed", "grep", "head", "cp", "mkdir", "basename", "dirname"}, tools...) {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

var scriptEnvVars = []string{"PROJECT_ROOT=", "BUNDLE_INSTALL=", "AUTO_INSTALL=", "INSTALLED_DEPS=", "DOWNLOAD_BASE_URL="}

func runBash(t *testing.T, dir string, extraEnv []string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command("bash", args...)
	cmd.Dir = dir
	env := make([]string, 0, len(os.Environ()))
	for _, kv := range os.Environ() {
		keep := true
		for _, prefix := range scriptEnvVars {
			if strings.HasPrefix(kv, prefix) {
				keep = false
			}
		}
		if keep {
			env = append(env, kv)
		}
	}
	cmd.Env = append(env, extraEnv...)
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(out), exitErr.ExitCode()
	}
	if err != nil {
		t.Fatalf("run bash: %v", err)
	}
	return string(out), 0
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

// extractedFiles returns the files of an extracted package for c.
func extractedFiles(t *testing.T, gen *Generator, c *models.Component) map[string]string {
	t.Helper()
	script, err := gen.InstallScript(c)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]string{
		c.Name + ".njk": c.Files.Template,
		"manifest.json": fmt.Sprintf("{\n  \"name\": %q,\n  \"contentHash\": %q,\n  \"version\": %q\n}\n", c.Name, c.ContentHash, c.Version),
		"package.json":  fmt.Sprintf("{\n  \"name\": \"@nunjucks-components/%s\",\n  %q: true\n}\n", c.Name, models.PackageMarker),
		"install.sh":    script,
	}
}

func writeExtracted(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		mode := os.FileMode(0o644)
		if name == "install.sh" {
			mode = 0o755
		}
		writeFile(t, filepath.Join(dir, name), content, mode)
	}
}

func writeConsumerConfig(t *testing.T, project string) {
	t.Helper()
	writeFile(t, filepath.Join(project, models.ConsumerConfigFile),
		"{\n  \"componentsBasePath\": \"lib/layouts/components\",\n  \"sectionsDir\": \"sections\",\n  \"partialsDir\": \"_partials\"\n}\n", 0o644)
}

func TestInstallIsIdempotent(t *testing.T) {
	requireTools(t)
	project := t.TempDir()
	writeConsumerConfig(t, project)

	hero := component(models.CategorySection, "hero")
	gen := NewGenerator(nil)
	writeExtracted(t, filepath.Join(project, "hero"), extractedFiles(t, gen, hero))

	out, code := runBash(t, filepath.Join(project, "hero"), nil, "install.sh")
	if code != 0 {
		t.Fatalf("first install exited %d:\n%s", code, out)
	}
	installed := filepath.Join(project, "lib/layouts/components/sections/hero")
	if _, err := os.Stat(filepath.Join(installed, "hero.njk")); err != nil {
		t.Fatalf("template not installed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Installation complete") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, code = runBash(t, filepath.Join(project, "hero"), nil, "install.sh")
	if code != 0 {
		t.Fatalf("second install exited %d:\n%s", code, out)
	}
	if !strings.Contains(out, "hero v1.0.0 already installed (no changes)") {
		t.Errorf("expected no-op message:\n%s", out)
	}
	if strings.Contains(out, "Copying files") {
		t.Error("no-op install copied files")
	}

	changed := component(models.CategorySection, "hero")
	changed.ContentHash = "fedcba9876543210"
	writeExtracted(t, filepath.Join(project, "hero"), extractedFiles(t, gen, changed))
	out, code = runBash(t, filepath.Join(project, "hero"), nil, "install.sh")
	if code != 0 || !strings.Contains(out, "Upgrading hero (content changed)") {
		t.Errorf("expected upgrade, exit %d:\n%s", code, out)
	}
}

func TestInstallWithoutConfigFails(t *testing.T) {
	requireTools(t)
	project := t.TempDir()
	c := component(models.CategoryPartial, "button")
	writeExtracted(t, filepath.Join(project, "button"), extractedFiles(t, NewGenerator(nil), c))

	out, code := runBash(t, filepath.Join(project, "button"), nil, "install.sh")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1:\n%s", code, out)
	}
	if !strings.Contains(out, models.ConsumerConfigFile+" not found") || !strings.Contains(out, `"componentsBasePath"`) {
		t.Errorf("expected config help:\n%s", out)
	}
}

func zipPackage(t *testing.T, path, name string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for rel, content := range files {
		hdr := &zip.FileHeader{Name: name + "/" + rel, Method: zip.Deflate}
		mode := os.FileMode(0o644)
		if rel == "install.sh" {
			mode = 0o755
		}
		hdr.SetMode(mode)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDependencyFallsBackToSection(t *testing.T) {
	requireTools(t, "curl", "unzip", "mktemp", "rm")
	project := t.TempDir()
	writeConsumerConfig(t, project)
	server := t.TempDir()

	media := component(models.CategorySection, "media")
	zipPackage(t, filepath.Join(server, "sections", "media.zip"), "media", extractedFiles(t, NewGenerator(nil), media))

	hero := component(models.CategorySection, "hero", "media")
	writeExtracted(t, filepath.Join(project, "hero"), extractedFiles(t, NewGenerator(nil), hero))

	out, code := runBash(t, filepath.Join(project, "hero"), []string{"DOWNLOAD_BASE_URL=file://" + server}, "install.sh")
	if code != 0 {
		t.Fatalf("install exited %d:\n%s", code, out)
	}
	if _, err := os.Stat(filepath.Join(project, "lib/layouts/components/sections/media/manifest.json")); err != nil {
		t.Fatalf("dependency not installed as a section: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(project, "lib/layouts/components/_partials/media")); err == nil {
		t.Error("dependency should not land in the partials directory")
	}
	if strings.Contains(out, "Could not install some dependencies") {
		t.Errorf("dependency reported as failed:\n%s", out)
	}
	if !strings.Contains(out, "Dependencies installed: media") {
		t.Errorf("expected dependency report:\n%s", out)
	}
}

func TestMissingDependencyIsSoftFailure(t *testing.T) {
	requireTools(t, "curl", "unzip", "mktemp", "rm")
	project := t.TempDir()
	writeConsumerConfig(t, project)

	hero := component(models.CategorySection, "hero", "ghost")
	writeExtracted(t, filepath.Join(project, "hero"), extractedFiles(t, NewGenerator(nil), hero))

	out, code := runBash(t, filepath.Join(project, "hero"),
		[]string{"AUTO_INSTALL=1", "DOWNLOAD_BASE_URL=file://" + t.TempDir()}, "install.sh")
	if code != 0 {
		t.Fatalf("install exited %d:\n%s", code, out)
	}
	if !strings.Contains(out, "Could not install some dependencies: ghost") {
		t.Errorf("expected failure warning:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(project, "lib/layouts/components/sections/hero/hero.njk")); err != nil {
		t.Errorf("component should still install: %v", err)
	}
}

func writeBundle(t *testing.T, project string, set models.ComponentSet) {
	t.Helper()
	gen := NewGenerator(depgraph.Build(set))
	root := filepath.Join(project, models.BundleDir)
	for _, c := range set.All() {
		writeExtracted(t, filepath.Join(root, c.Category.Dir(), c.Name), extractedFiles(t, gen, c))
	}
	script, err := gen.BundleScript(set)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "install-all.sh"), script, 0o755)
}

func tenPartials() models.ComponentSet {
	var set models.ComponentSet
	for i := range 10 {
		set.Partials = append(set.Partials, component(models.CategoryPartial, fmt.Sprintf("p%d", i)))
	}
	return set
}

func TestBundleUpdateOnly(t *testing.T) {
	requireTools(t)
	project := t.TempDir()
	writeConsumerConfig(t, project)
	writeBundle(t, project, tenPartials())

	for _, name := range []string{"p1", "p4", "p7"} {
		writeFile(t, filepath.Join(project, "lib/layouts/components/_partials", name, "manifest.json"),
			`{"contentHash": "stale"}`, 0o644)
	}

	out, code := runBash(t, project, nil, filepath.Join(models.BundleDir, "install-all.sh"), "--update-only")
	if code != 0 {
		t.Fatalf("bundle exited %d:\n%s", code, out)
	}
	if !strings.Contains(out, "Installed/Updated: 3 components") {
		t.Errorf("expected 3 updates:\n%s", out)
	}
	if !strings.Contains(out, "Skipped: 7 components") {
		t.Errorf("expected 7 skips:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(project, "lib/layouts/components/_partials/p0")); err == nil {
		t.Error("update mode installed a component that was not present")
	}
	if _, err := os.Stat(filepath.Join(project, models.BundleDir)); err != nil {
		t.Error("bundle directory removed without confirmation")
	}
}

func TestBundleUpdateOnlyInstallsRequiredDependency(t *testing.T) {
	requireTools(t)
	project := t.TempDir()
	writeConsumerConfig(t, project)
	set := models.ComponentSet{
		Sections: []*models.Component{component(models.CategorySection, "hero", "ctas")},
		Partials: []*models.Component{
			component(models.CategoryPartial, "ctas"),
			component(models.CategoryPartial, "unused"),
		},
	}
	writeBundle(t, project, set)
	writeFile(t, filepath.Join(project, "lib/layouts/components/sections/hero/manifest.json"), `{"contentHash": "stale"}`, 0o644)

	out, code := runBash(t, project, nil, filepath.Join(models.BundleDir, "install-all.sh"), "-u")
	if code != 0 {
		t.Fatalf("bundle exited %d:\n%s", code, out)
	}
	if _, err := os.Stat(filepath.Join(project, "lib/layouts/components/_partials/ctas/manifest.json")); err != nil {
		t.Errorf("required dependency not installed:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(project, "lib/layouts/components/_partials/unused")); err == nil {
		t.Error("unrelated component installed in update mode")
	}
	if !strings.Contains(out, "Installed/Updated: 2 components") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestBundleFullInstall(t *testing.T) {
	requireTools(t)
	project := t.TempDir()
	writeConsumerConfig(t, project)
	writeBundle(t, project, tenPartials())

	out, code := runBash(t, filepath.Join(project, models.BundleDir), nil, "install-all.sh")
	if code != 0 {
		t.Fatalf("bundle exited %d:\n%s", code, out)
	}
	if !strings.Contains(out, "Installed/Updated: 10 components") {
		t.Errorf("expected 10 installs:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(project, "lib/layouts/components/_partials/p9/p9.njk")); err != nil {
		t.Error(err)
	}
}
