package readme

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/componentkit/internal/models"
)

// Instructions renders short Markdown install steps for a published package.
// downloadURL may be site-relative; baseURL, when set, makes it absolute.
func Instructions(category models.Category, name, downloadURL, baseURL string, requires []string) string {
	url := downloadURL
	if baseURL != "" && strings.HasPrefix(downloadURL, "/") {
		url = strings.TrimRight(baseURL, "/") + downloadURL
	}
	archive := path.Base(downloadURL)

	var b strings.Builder
	fmt.Fprintf(&b, "# Installing %s (%s)\n\n", models.DisplayName(name), category)
	fmt.Fprintf(&b, "1. Create `%s` in your project root:\n\n", models.ConsumerConfigFile)
	b.WriteString("```json\n" + consumerConfigJSON() + "```\n\n")
	b.WriteString("2. Download and run the installer from the project root:\n\n")
	b.WriteString("```bash\n")
	fmt.Fprintf(&b, "curl -L -o %s %s\n", archive, url)
	fmt.Fprintf(&b, "unzip -o %s\n", archive)
	fmt.Fprintf(&b, "cd %s && ./install.sh\n", name)
	b.WriteString("```\n")
	if len(requires) > 0 {
		fmt.Fprintf(&b, "\nThe installer also fetches missing dependencies: %s.\n", strings.Join(requires, ", "))
	}
	target := path.Join(models.DefaultConsumerConfig().ComponentsBasePath, sourceDir(category), name)
	fmt.Fprintf(&b, "\nFiles land in `%s/` with the default config.\n", target)
	return b.String()
}
