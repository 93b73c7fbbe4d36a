package models

import "time"

// PackageMeta describes one generated component archive in downloads/manifest.json.
type PackageMeta struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Version     string   `json:"version"`
	ContentHash string   `json:"contentHash"`
	Type        Category `json:"type"`
	DownloadURL string   `json:"downloadUrl"`
	Size        string   `json:"size"`
	SizeBytes   int64    `json:"sizeBytes"`
	Checksum    *string  `json:"checksum"`
	HasStyles   bool     `json:"hasStyles"`
	HasScripts  bool     `json:"hasScripts"`
	HasModules  bool     `json:"hasModules"`
	Requires    []string `json:"requires"`
}

// Ref returns the graph key of the package.
func (p *PackageMeta) Ref() Ref {
	return Ref{Category: p.Type, Name: p.Name}
}

// BundleMeta describes the aggregate archive.
type BundleMeta struct {
	Version     string  `json:"version"`
	DownloadURL string  `json:"downloadUrl"`
	Size        string  `json:"size"`
	SizeBytes   int64   `json:"sizeBytes"`
	Checksum    *string `json:"checksum"`
}

// DownloadsManifest is the top-level downloads/manifest.json document.
type DownloadsManifest struct {
	Generated time.Time      `json:"generated"`
	Version   string         `json:"version"`
	BasePath  string         `json:"basePath"`
	Sections  []*PackageMeta `json:"sections"`
	Partials  []*PackageMeta `json:"partials"`
	Bundle    *BundleMeta    `json:"bundle"`
}

// ConsumerConfig is the nunjucks-components.config.json file a consumer
// project must provide before installing packages.
type ConsumerConfig struct {
	ComponentsBasePath string `json:"componentsBasePath"`
	SectionsDir        string `json:"sectionsDir"`
	PartialsDir        string `json:"partialsDir"`
}

// ConsumerConfigFile is the sentinel file name installers search for.
const ConsumerConfigFile = "nunjucks-components.config.json"

// PackageMarker is the package.json key that identifies an extracted component package.
const PackageMarker = "x-nunjucks-component"

// BundleDir is the root directory inside the aggregate archive.
const BundleDir = "nunjucks-components"

// DefaultConsumerConfig is the example printed by installers and documentation.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		ComponentsBasePath: "lib/layouts/components",
		SectionsDir:        "sections",
		PartialsDir:        "_partials",
	}
}
