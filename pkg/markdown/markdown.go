// Package markdown renders the proposal summary with the small rule set the
// proposal prompt asks for: "### " heading lines, "* " bullet lines and line breaks.
// Everything else is shown as escaped text.
package markdown

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// CSS classes applied to rendered elements.
const (
	HeadingClass = "proposal-heading"
	BulletClass  = "proposal-bullet"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// ToHTML converts proposal markdown to sanitized HTML.
func ToHTML(md string) template.HTML {
	if md == "" {
		return ""
	}
	md = strings.ReplaceAll(md, "\r\n", "\n")
	md = strings.ReplaceAll(md, "\r", "\n")

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = renderLine(line)
	}
	//nolint:gosec // output is restricted to the allow-list policy
	return template.HTML(sanitizer().Sanitize(strings.Join(lines, "<br>")))
}

func renderLine(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	switch {
	case strings.HasPrefix(trimmed, "### "):
		return `<h3 class="` + HeadingClass + `">` + html.EscapeString(strings.TrimPrefix(trimmed, "### ")) + `</h3>`
	case strings.HasPrefix(trimmed, "* "):
		return `<li class="` + BulletClass + `">` + html.EscapeString(strings.TrimPrefix(trimmed, "* ")) + `</li>`
	default:
		return html.EscapeString(line)
	}
}

// ToText strips the markup characters for plain terminal output.
func ToText(md string) string {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(trimmed, "### "):
			lines[i] = strings.ToUpper(strings.TrimPrefix(trimmed, "### "))
		case strings.HasPrefix(trimmed, "* "):
			lines[i] = "  • " + strings.TrimPrefix(trimmed, "* ")
		}
	}
	return strings.Join(lines, "\n")
}

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.StrictPolicy()
		p.AllowElements("h3", "li", "br")
		p.AllowAttrs("class").OnElements("h3", "li")
		policy = p
	})
	return policy
}
