package installer

import (
	"fmt"
	"strings"

	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/shell"
)

// BashRenderer renders plans as bash scripts.
type BashRenderer struct{}

var _ Renderer = BashRenderer{}

const readConfigSed = `sed -n "s/.*\"$1\"[[:space:]]*:[[:space:]]*\"\([^\"]*\)\".*/\1/p" "$PROJECT_ROOT/` + models.ConsumerConfigFile + `" | head -n 1`

const readHashSed = `sed -n 's/.*"contentHash"[[:space:]]*:[[:space:]]*"\([^"]*\)".*/\1/p' "$TARGET_DIR/manifest.json" | head -n 1`

// markerGrep matches the package.json key that identifies an extracted package.
var markerGrep = `grep -q '"` + models.PackageMarker + `"'`

// prompt reads a single key. End of input leaves REPLY empty instead of
// tripping set -e.
func prompt(b *shell.Block, question string) {
	b.Linef(`read -p %s -n 1 -r || REPLY=""`, `"`+shell.EscapeDouble(question)+`"`)
	b.Line("echo")
}

func configMissingFunc(b *shell.Block) {
	def := models.DefaultConsumerConfig()
	example := fmt.Sprintf("{\n  \"componentsBasePath\": %q,\n  \"sectionsDir\": %q,\n  \"partialsDir\": %q\n}",
		def.ComponentsBasePath, def.SectionsDir, def.PartialsDir)
	b.Func("config_missing", func(b *shell.Block) {
		b.Echo("❌ Error: " + models.ConsumerConfigFile + " not found")
		b.Echo("Please create this config file in your project root before installing components.")
		b.Echo("")
		b.Echo("Example " + models.ConsumerConfigFile + ":")
		b.Echo(example)
		b.Line("exit 1")
	})
	b.Blank()
}

func loadConfig(b *shell.Block) {
	def := models.DefaultConsumerConfig()
	b.Comment("Read a string value from the consumer config without needing node")
	b.Func("read_config_value", func(b *shell.Block) {
		b.Line(readConfigSed)
	})
	b.Blank()
	b.Comment("Load component paths from config")
	b.Line(`COMPONENTS_BASE="$(read_config_value componentsBasePath)"`)
	b.Line(`SECTIONS_DIR="$(read_config_value sectionsDir)"`)
	b.Line(`PARTIALS_DIR="$(read_config_value partialsDir)"`)
	b.Linef(`COMPONENTS_BASE="${COMPONENTS_BASE:-%s}"`, def.ComponentsBasePath)
	b.Linef(`SECTIONS_DIR="${SECTIONS_DIR:-%s}"`, def.SectionsDir)
	b.Linef(`PARTIALS_DIR="${PARTIALS_DIR:-%s}"`, def.PartialsDir)
	b.Blank()
}

func targetDirVar(c models.Category) string {
	if c == models.CategorySection {
		return "$SECTIONS_DIR"
	}
	return "$PARTIALS_DIR"
}

// RenderInstall renders install.sh for one component.
func (BashRenderer) RenderInstall(p InstallPlan) string {
	baseURL := p.DownloadBaseURL
	if baseURL == "" {
		baseURL = DefaultDownloadBaseURL
	}

	s := shell.NewScript()
	b := s.Body
	b.Comment(fmt.Sprintf("Installation script for %s v%s", p.Name, p.Version))
	b.Comment("Content Hash: " + p.ContentHash)
	b.Blank()
	b.Line("set -e")
	b.Blank()
	b.Comment("Base URL for component downloads")
	b.Linef(`DOWNLOAD_BASE_URL="${DOWNLOAD_BASE_URL:-%s}"`, shell.Literal(baseURL))
	b.Blank()
	b.Sayf("🔧 Installing %s v%s...", p.Name, p.Version)
	b.Blank()
	b.Comment("Detect project directory and component source")
	b.Line(`COMPONENT_DIR="$(cd "$(dirname "${BASH_SOURCE[0]}")" && pwd)"`)
	b.Blank()
	b.Comment("Function to find project root by looking for config file")
	b.Func("find_project_root", func(b *shell.Block) {
		b.Linef(`[ -f "$1/%s" ]`, models.ConsumerConfigFile)
	})
	b.Blank()
	configMissingFunc(b)

	b.If(`[ -n "$PROJECT_ROOT" ]`, func(b *shell.Block) {
		b.Comment("Called from the bundle installer or a parent install")
		b.Line(`cd "$PROJECT_ROOT"`)
	}).ElseIf(`[ -f "package.json" ] && `+markerGrep+` package.json`, func(b *shell.Block) {
		b.Comment("In an extracted component directory, look up for the project root")
		b.If(`find_project_root ".."`, func(b *shell.Block) {
			b.Line(`PROJECT_ROOT="$(cd .. && pwd)"`)
		}).ElseIf(`find_project_root "../.."`, func(b *shell.Block) {
			b.Comment("Two levels up (e.g., bundle/partials/component/)")
			b.Line(`PROJECT_ROOT="$(cd ../.. && pwd)"`)
		}).Else(func(b *shell.Block) {
			b.Line("config_missing")
		})
		b.Line(`cd "$PROJECT_ROOT"`)
	}).ElseIf(`find_project_root "."`, func(b *shell.Block) {
		b.Comment("Already in project root")
		b.Line(`PROJECT_ROOT="$(pwd)"`)
	}).Else(func(b *shell.Block) {
		b.Line("config_missing")
	})
	b.If(`! find_project_root "."`, func(b *shell.Block) {
		b.Line("config_missing")
	})
	b.Line("export PROJECT_ROOT")
	b.Blank()

	loadConfig(b)

	b.Comment("Track installed dependencies to prevent circular loops")
	b.Line(`export INSTALLED_DEPS="${INSTALLED_DEPS:-}"`)
	b.Blank()

	installDependencyFunc(b)

	b.Comment("Create target directory")
	b.Linef(`TARGET_DIR="$COMPONENTS_BASE/%s/%s"`, targetDirVar(p.Category), p.Name)
	b.Line(`mkdir -p "$TARGET_DIR"`)
	b.Blank()

	b.Comment("Check for existing installation")
	b.If(`[ -f "$TARGET_DIR/manifest.json" ]`, func(b *shell.Block) {
		b.Linef(`EXISTING_HASH="$(%s)"`, readHashSed)
		b.If(fmt.Sprintf(`[ "$EXISTING_HASH" = "%s" ]`, p.ContentHash), func(b *shell.Block) {
			b.Sayf("✓ %s v%s already installed (no changes)", p.Name, p.Version)
			b.Line("exit 0")
		}).Else(func(b *shell.Block) {
			b.Sayf("📦 Upgrading %s (content changed)", p.Name)
		})
	})
	b.Blank()

	if len(p.Dependencies) > 0 {
		dependencyChecks(b, p.Dependencies)
	}

	b.Comment("Copy files")
	b.Echo("Copying files...")
	b.Linef(`cp "$COMPONENT_DIR/%s.njk" "$TARGET_DIR/"`, p.Name)
	if p.HasStyles {
		b.Linef(`cp "$COMPONENT_DIR/%s.css" "$TARGET_DIR/"`, p.Name)
	}
	if p.HasScripts {
		b.Linef(`cp "$COMPONENT_DIR/%s.js" "$TARGET_DIR/"`, p.Name)
	}
	b.Line(`cp "$COMPONENT_DIR/manifest.json" "$TARGET_DIR/"`)
	b.If(`[ -f "$COMPONENT_DIR/README.md" ]`, func(b *shell.Block) {
		b.Line(`cp "$COMPONENT_DIR/README.md" "$TARGET_DIR/"`)
	})
	if p.HasModules {
		b.Blank()
		b.Comment("Copy modules directory")
		b.If(`[ -d "$COMPONENT_DIR/modules" ]`, func(b *shell.Block) {
			b.Line(`cp -r "$COMPONENT_DIR/modules" "$TARGET_DIR/"`)
		})
	}
	b.Blank()
	b.Echo("")
	b.Echo("✓ Installation complete")
	b.Echo("")
	b.Say("Files installed to: $TARGET_DIR")
	if len(p.Dependencies) > 0 {
		b.If(`[ -n "$AUTO_INSTALLED_DEPS" ]`, func(b *shell.Block) {
			b.Say("Dependencies installed:$AUTO_INSTALLED_DEPS")
		})
	}
	b.Echo("")

	b.Comment("Offer to remove the extracted package unless run by another installer")
	b.If(`[ -z "$BUNDLE_INSTALL" ] && [ -z "$AUTO_INSTALL" ] && [ -f "$COMPONENT_DIR/package.json" ] && `+markerGrep+` "$COMPONENT_DIR/package.json" 2>/dev/null`, func(b *shell.Block) {
		b.Comment("Only when the package was extracted directly into the project root")
		b.Line(`COMPONENT_BASENAME="$(basename "$COMPONENT_DIR")"`)
		b.If(`[ "$COMPONENT_DIR" = "$PROJECT_ROOT/$COMPONENT_BASENAME" ]`, func(b *shell.Block) {
			b.Echo("")
			prompt(b, "Remove extracted component directory $COMPONENT_BASENAME? (y/n) ")
			b.If(`[[ $REPLY =~ ^[Yy]$ ]]`, func(b *shell.Block) {
				b.Line(`rm -rf "$COMPONENT_DIR"`)
				b.Say("✓ Cleaned up $COMPONENT_BASENAME")
			})
		})
	})
	b.Blank()
	b.Echo("")
	b.Echo("See README.md for usage instructions")
	return s.String()
}

func installDependencyFunc(b *shell.Block) {
	b.Comment("Download and install a dependency: install_dependency <name> <partial|section>")
	b.Func("install_dependency", func(b *shell.Block) {
		b.Line(`local dep_name="$1"`)
		b.Line(`local dep_type="$2"`)
		b.Line(`local key="$dep_type/$dep_name"`)
		b.Blank()
		b.Comment("Already attempted in this session (circular dependency protection)")
		b.If(`[[ "$INSTALLED_DEPS" == *":$key:"* ]]`, func(b *shell.Block) {
			b.Line("return 0")
		})
		b.Line(`export INSTALLED_DEPS="$INSTALLED_DEPS:$key:"`)
		b.Blank()
		b.Line("local dep_dir")
		b.Line("local download_url")
		b.If(`[ "$dep_type" = "section" ]`, func(b *shell.Block) {
			b.Line(`dep_dir="$COMPONENTS_BASE/$SECTIONS_DIR/$dep_name"`)
			b.Line(`download_url="$DOWNLOAD_BASE_URL/sections/$dep_name.zip"`)
		}).Else(func(b *shell.Block) {
			b.Line(`dep_dir="$COMPONENTS_BASE/$PARTIALS_DIR/$dep_name"`)
			b.Line(`download_url="$DOWNLOAD_BASE_URL/partials/$dep_name.zip"`)
		})
		b.Blank()
		b.If(`[ -f "$dep_dir/manifest.json" ]`, func(b *shell.Block) {
			b.Say("  ✓ $dep_name (already installed)")
			b.Line("return 0")
		})
		b.Blank()
		b.Say("  ↓ Installing $dep_name...")
		b.Line("local temp_dir")
		b.Line(`temp_dir="$(mktemp -d)"`)
		b.Line(`local zip_file="$temp_dir/$dep_name.zip"`)
		b.Blank()
		b.If(`! curl -sL -f "$download_url" -o "$zip_file" 2>/dev/null`, func(b *shell.Block) {
			b.Say("    ⚠ Failed to download $dep_name from $download_url")
			b.Line(`rm -rf "$temp_dir"`)
			b.Line("return 1")
		})
		b.If(`! unzip -q "$zip_file" -d "$temp_dir" 2>/dev/null`, func(b *shell.Block) {
			b.Say("    ⚠ Failed to extract $dep_name")
			b.Line(`rm -rf "$temp_dir"`)
			b.Line("return 1")
		})
		b.Blank()
		b.Comment("The dependency's own installer handles its nested requirements")
		b.Line(`local extracted_dir="$temp_dir/$dep_name"`)
		b.If(`[ -f "$extracted_dir/install.sh" ]`, func(b *shell.Block) {
			b.If(`! (cd "$extracted_dir" && AUTO_INSTALL=1 bash ./install.sh)`, func(b *shell.Block) {
				b.Say("    ⚠ Failed to install $dep_name")
				b.Line(`rm -rf "$temp_dir"`)
				b.Line("return 1")
			})
		})
		b.Line(`rm -rf "$temp_dir"`)
		b.Line(`AUTO_INSTALLED_DEPS="$AUTO_INSTALLED_DEPS $dep_name"`)
		b.Line("return 0")
	})
	b.Blank()
}

func dependencyChecks(b *shell.Block, deps []string) {
	b.Comment("Check and auto-install dependencies, deepest first")
	b.Echo("Checking dependencies...")
	b.Line(`AUTO_INSTALLED_DEPS=""`)
	b.Line(`FAILED_DEPS=""`)
	b.For("dep", strings.Join(deps, " "), func(b *shell.Block) {
		b.If(`[ -f "$COMPONENTS_BASE/$PARTIALS_DIR/$dep/manifest.json" ] || [ -f "$COMPONENTS_BASE/$SECTIONS_DIR/$dep/manifest.json" ]`, func(b *shell.Block) {
			b.Say("  ✓ $dep (already installed)")
		}).ElseIf(`! install_dependency "$dep" partial && ! install_dependency "$dep" section`, func(b *shell.Block) {
			b.Comment("Most dependencies are partials; sections are the fallback")
			b.Line(`FAILED_DEPS="$FAILED_DEPS $dep"`)
		})
	})
	b.Blank()
	b.If(`[ -n "$FAILED_DEPS" ]`, func(b *shell.Block) {
		b.Echo("")
		b.Say("⚠ Warning: Could not install some dependencies:$FAILED_DEPS")
		b.Echo("")
		b.Echo("You may need to download them manually from:")
		b.Say("  $DOWNLOAD_BASE_URL/")
		b.Echo("")
		b.If(`[ -n "$BUNDLE_INSTALL" ] || [ -n "$AUTO_INSTALL" ]`, func(b *shell.Block) {
			b.Echo("  (Auto-continuing)")
			b.Echo("")
		}).Else(func(b *shell.Block) {
			prompt(b, "Continue installation anyway? (y/n) ")
			b.If(`[[ ! $REPLY =~ ^[Yy]$ ]]`, func(b *shell.Block) {
				b.Line("exit 1")
			})
		})
	})
	b.Blank()
}

// RenderBundle renders install-all.sh for the bundle.
func (BashRenderer) RenderBundle(p BundlePlan) string {
	s := shell.NewScript()
	b := s.Body
	b.Comment("Nunjucks Components Bundle Installation Script")
	b.Blank()
	b.Line("set -e")
	b.Blank()
	b.Echo("🔧 Installing Nunjucks Components Bundle...")
	b.Echo("")
	b.Blank()
	b.Line(`SCRIPT_DIR="$(cd "$(dirname "${BASH_SOURCE[0]}")" && pwd)"`)
	b.Blank()
	configMissingFunc(b)

	b.Comment("Config file lives in the current directory, or its parent when run from inside the bundle")
	b.If(fmt.Sprintf(`[ -f "%s" ]`, models.ConsumerConfigFile), func(b *shell.Block) {
		b.Line(`PROJECT_ROOT="$(pwd)"`)
	}).ElseIf(fmt.Sprintf(`[ -f "../%s" ]`, models.ConsumerConfigFile), func(b *shell.Block) {
		b.Line("cd ..")
		b.Line(`PROJECT_ROOT="$(pwd)"`)
	}).Else(func(b *shell.Block) {
		b.Line("config_missing")
	})
	b.Blank()
	b.Line("export PROJECT_ROOT")
	b.Line("export BUNDLE_INSTALL=1")
	b.Blank()

	loadConfig(b)
	modeSelection(b)

	b.Line("INSTALLED_COUNT=0")
	b.Line("SKIPPED_COUNT=0")
	b.Line("FAILED_COUNT=0")
	b.Blank()
	b.Func("is_installed", func(b *shell.Block) {
		b.If(`[ "$1" = "section" ]`, func(b *shell.Block) {
			b.Line(`[ -f "$COMPONENTS_BASE/$SECTIONS_DIR/$2/manifest.json" ]`)
		}).Else(func(b *shell.Block) {
			b.Line(`[ -f "$COMPONENTS_BASE/$PARTIALS_DIR/$2/manifest.json" ]`)
		})
	})
	b.Blank()
	b.Comment("install_component <partials|sections> <name>")
	b.Func("install_component", func(b *shell.Block) {
		b.Say("Installing $2...")
		b.Line(`cd "$PROJECT_ROOT"`)
		b.If(`(cd "$SCRIPT_DIR/$1/$2" && bash ./install.sh)`, func(b *shell.Block) {
			b.Line("INSTALLED_COUNT=$((INSTALLED_COUNT + 1))")
		}).Else(func(b *shell.Block) {
			b.Say("⚠ Failed to install $2")
			b.Line("FAILED_COUNT=$((FAILED_COUNT + 1))")
		})
		b.Echo("")
	})
	b.Blank()

	b.Comment("Install partials (dependencies first)")
	b.Echo("📦 Installing partials...")
	b.Echo("")
	b.Blank()
	for _, step := range p.Partials {
		bundleStep(b, step)
	}

	b.Comment("Install sections")
	b.Echo("📦 Installing sections...")
	b.Echo("")
	b.Blank()
	for _, step := range p.Sections {
		bundleStep(b, step)
	}

	b.Echo("")
	b.Echo("✓ Bundle installation complete")
	b.Echo("")
	b.Say("Installed/Updated: $INSTALLED_COUNT components")
	b.If(`[ "$MODE" = "update" ] && [ "$SKIPPED_COUNT" -gt 0 ]`, func(b *shell.Block) {
		b.Say("Skipped: $SKIPPED_COUNT components (not previously installed)")
	})
	b.If(`[ "$FAILED_COUNT" -gt 0 ]`, func(b *shell.Block) {
		b.Say("⚠ Failed: $FAILED_COUNT components")
	})
	b.Echo("")
	b.Echo("See individual README files for usage instructions.")
	b.Blank()
	b.Comment("Cleanup: ask user if they want to remove the bundle directory")
	b.Echo("")
	prompt(b, "Remove the "+models.BundleDir+" bundle directory? (y/n) ")
	b.If(`[[ $REPLY =~ ^[Yy]$ ]]`, func(b *shell.Block) {
		b.Line(`rm -rf "$SCRIPT_DIR"`)
		b.Echo("✓ Bundle directory removed")
	}).Else(func(b *shell.Block) {
		b.Say("Bundle directory kept at: $SCRIPT_DIR")
	})
	return s.String()
}

func modeSelection(b *shell.Block) {
	b.Comment("Check installation mode")
	b.Line(`MODE="all"`)
	b.If(`[ "$1" = "--update-only" ] || [ "$1" = "-u" ]`, func(b *shell.Block) {
		b.Line(`MODE="update"`)
		b.Echo("📦 Update mode: Only updating existing components")
		b.Echo("")
	}).ElseIf(`[ -d "$COMPONENTS_BASE" ]`, func(b *shell.Block) {
		b.Echo("Existing components directory found.")
		b.Echo("")
		b.Echo("Choose installation mode:")
		b.Echo("  1) Install all components (default)")
		b.Echo("  2) Update existing components only")
		b.Echo("")
		prompt(b, "Select [1-2]: ")
		b.Echo("")
		b.If(`[[ $REPLY == "2" ]]`, func(b *shell.Block) {
			b.Line(`MODE="update"`)
			b.Echo("📦 Update mode: Only updating existing components")
		}).Else(func(b *shell.Block) {
			b.Echo("📦 Full install mode: Installing all components")
		})
		b.Echo("")
	})
	b.Blank()
}

func bundleStep(b *shell.Block, step BundleStep) {
	ref := step.Ref
	notInstalled := []string{fmt.Sprintf("! is_installed %s %s", ref.Category, ref.Name)}
	for _, d := range step.Dependents {
		notInstalled = append(notInstalled, fmt.Sprintf("! is_installed %s %s", d.Category, d.Name))
	}
	b.If(fmt.Sprintf(`[ -f "$SCRIPT_DIR/%s/%s/install.sh" ]`, ref.Category.Dir(), ref.Name), func(b *shell.Block) {
		b.If(`[ "$MODE" = "update" ] && `+strings.Join(notInstalled, " && "), func(b *shell.Block) {
			b.Sayf("⊘ Skipping %s (not currently installed)", ref.Name)
			b.Line("SKIPPED_COUNT=$((SKIPPED_COUNT + 1))")
		}).Else(func(b *shell.Block) {
			b.Linef("install_component %s %s", ref.Category.Dir(), ref.Name)
		})
	})
	b.Blank()
}
