package mcpserver

// ConfigContractURI is the resource URI of ConfigContract.
const ConfigContractURI = "componentkit://config-contract"

// ConfigContract describes what a consumer project must provide before the
// generated installers will run.
const ConfigContract = `# Component Installer Config Contract

Every installer (` + "`install.sh`" + `, ` + "`install-all.sh`" + `) looks for
` + "`nunjucks-components.config.json`" + ` in the current directory, then in each
parent directory up to the filesystem root. Without it the installer prints an
example and exits with status 1.

## Format

` + "```" + `json
{
  "componentsBasePath": "lib/layouts/components",
  "sectionsDir": "sections",
  "partialsDir": "_partials"
}
` + "```" + `

## Rules

1. All three keys are optional; missing keys fall back to the values above.
2. Paths are relative to the directory holding the config file (the project root).
3. Sections install to ` + "`<componentsBasePath>/<sectionsDir>/<name>/`" + `.
4. Partials install to ` + "`<componentsBasePath>/<partialsDir>/<name>/`" + `.
5. An installed component is identified by its ` + "`manifest.json`" + `; an install
   whose ` + "`contentHash`" + ` matches the installed copy is a no-op.

## Environment

- ` + "`DOWNLOAD_BASE_URL`" + ` overrides where missing dependencies are fetched from.
- ` + "`PROJECT_ROOT`" + ` pins the project root and skips the upward search.
- ` + "`AUTO_INSTALL=true`" + ` answers yes to every dependency prompt.

## Bundle

` + "`install-all.sh`" + ` installs every component in dependency order.
` + "`install-all.sh --update-only`" + ` (or ` + "`-u`" + `) only touches components that are
already installed, plus dependencies they need.
`
