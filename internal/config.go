package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/componentkit/internal/installer"
	"github.com/starford/componentkit/internal/models"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Project  ProjectConfig     `yaml:"project"`
	Packages PackagesConfig    `yaml:"packages"`
	Catalog  CatalogConfig     `yaml:"catalog"`
	Watch    WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Project.Validate(); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if err := c.Packages.Validate(); err != nil {
		return fmt.Errorf("packages: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds dev server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ProjectConfig locates the site being built.
type ProjectConfig struct {
	Directory   string `yaml:"directory"`
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	Clean       bool   `yaml:"clean"`

	// Version overrides the version read from <directory>/package.json.
	Version string `yaml:"version"`
}

// Validate validates the project configuration.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Directory, validation.Required),
		validation.Field(&c.Source, validation.Required),
		validation.Field(&c.Destination, validation.Required),
		validation.Field(&c.Version, validation.Match(models.VersionPattern).Error("must be a semantic version such as 1.2.3")),
	)
}

// PackagesConfig controls component packaging.
type PackagesConfig struct {
	ComponentsPath  string `yaml:"components_path"`
	ExamplesPath    string `yaml:"examples_path"`
	OutputPath      string `yaml:"output_path"`
	Bundle          bool   `yaml:"bundle"`
	Checksums       bool   `yaml:"checksums"`
	DownloadBaseURL string `yaml:"download_base_url"`
}

// relativePath rejects absolute paths and paths that climb out of their base.
var relativePath = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	clean := path.Clean(s)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must be a relative path inside the project")
	}
	return nil
})

// Validate validates the packaging configuration.
func (c *PackagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ComponentsPath, validation.Required, relativePath),
		validation.Field(&c.ExamplesPath, relativePath),
		validation.Field(&c.OutputPath, validation.Required, relativePath),
		validation.Field(&c.DownloadBaseURL, validation.Required, is.URL),
	)
}

// CatalogConfig holds the SQLite catalog location.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// WatchConfig tunes the dev server rebuild loop.
type WatchConfig struct {
	Debounce       time.Duration `yaml:"debounce"`
	ReloadThrottle time.Duration `yaml:"reload_throttle"`
	Heartbeat      time.Duration `yaml:"heartbeat"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.ReloadThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.Heartbeat, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Project: ProjectConfig{
			Directory:   ".",
			Source:      "src",
			Destination: "build",
			Clean:       true,
		},
		Packages: PackagesConfig{
			ComponentsPath:  "lib/layouts/components",
			ExamplesPath:    "lib/layouts/components/examples",
			OutputPath:      "downloads",
			Bundle:          true,
			Checksums:       true,
			DownloadBaseURL: installer.DefaultDownloadBaseURL,
		},
		Catalog: CatalogConfig{
			Path: "./componentkit.db",
		},
		Watch: WatchConfig{
			Debounce:       300 * time.Millisecond,
			ReloadThrottle: 2 * time.Second,
			Heartbeat:      30 * time.Second,
		},
	}
}
