// Package parser splits YAML frontmatter from Markdown documentation pages.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
}

// Parse extracts frontmatter, body and title from raw Markdown bytes.
// Content without a frontmatter block, or with invalid YAML in it, is
// returned as body only.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
	}, nil
}

// splitFrontmatter separates a YAML block delimited by --- lines at the very
// start of the document from the Markdown body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	if !bytes.HasPrefix(normalized, []byte(delim+"\n")) {
		return nil, string(data)
	}

	rest := normalized[len(delim)+1:]
	var yamlBlock, afterDelim []byte
	if bytes.HasPrefix(rest, []byte(delim)) {
		// Empty frontmatter block.
		afterDelim = rest[len(delim):]
	} else {
		idx := bytes.Index(rest, []byte("\n"+delim))
		if idx < 0 {
			return nil, string(data)
		}
		yamlBlock = rest[:idx]
		afterDelim = rest[idx+1+len(delim):]
	}
	body := strings.TrimLeft(string(afterDelim), "\n")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	if fm == nil {
		fm = map[string]any{}
	}
	return fm, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if fm != nil {
		if s, ok := fm["title"].(string); ok && s != "" {
			return s
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// Sections returns the frontmatter "sections" list. Entries that are not
// mappings are nil so indices match the source list.
func (r *Result) Sections() []map[string]any {
	if r == nil || r.Frontmatter == nil {
		return nil
	}
	raw, ok := r.Frontmatter["sections"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		} else {
			out = append(out, nil)
		}
	}
	return out
}
