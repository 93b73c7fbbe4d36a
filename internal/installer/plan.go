// Package installer generates the bash scripts shipped inside component
// archives: install.sh for a single component and install-all.sh for the
// bundle.
package installer

import "github.com/starford/componentkit/internal/models"

// DefaultDownloadBaseURL is where installers fetch missing dependencies.
const DefaultDownloadBaseURL = "https://nunjucks-components.com/downloads"

// InstallPlan is everything a renderer needs to emit one install.sh.
type InstallPlan struct {
	Name        string
	Version     string
	ContentHash string
	Category    models.Category

	// Dependencies lists every transitive requirement, deepest first.
	Dependencies []string

	HasStyles       bool
	HasScripts      bool
	HasModules      bool
	DownloadBaseURL string
}

// BundleStep installs one component from the bundle.
type BundleStep struct {
	Ref models.Ref

	// Dependents are the components that transitively require Ref. In update
	// mode Ref is installed when it or any dependent is already on disk.
	Dependents []models.Ref
}

// BundlePlan lists the bundle install steps per phase, each in dependency order.
type BundlePlan struct {
	Partials []BundleStep
	Sections []BundleStep
}

// Renderer turns plans into script text.
type Renderer interface {
	RenderInstall(plan InstallPlan) string
	RenderBundle(plan BundlePlan) string
}
