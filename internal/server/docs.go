package server

import (
	"bytes"
	"fmt"
	"html/template"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/shim"
	"github.com/livetemplate/mint/internal/style"
)

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} reference</title>
<link rel="stylesheet" href="/assets/editor.css">
</head>
<body class="docs">
<main class="docs-body">{{.Body}}</main>
</body>
</html>
`

var docsTemplate = template.Must(template.New("docs").Parse(docsPage))

// docsMarkdown describes the supported primitives and the style properties
// each of them accepts.
func docsMarkdown() string {
	var b strings.Builder
	lib := shim.New(platform.Default)

	b.WriteString("# Component reference\n\n")
	b.WriteString("Imports from `react-native` resolve to these primitives. Anything else fails with an unknown primitive error.\n\n")
	b.WriteString("| Primitive | Element | Description |\n|---|---|---|\n")
	for _, d := range lib.Definitions() {
		elem := "-"
		if d.Visual() {
			elem = "`<" + d.Tag + ">`"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", d.Name, elem, d.Description)
	}

	b.WriteString("\n## Style properties\n\n")
	b.WriteString("Properties outside a primitive's list are dropped silently.\n\n")
	for _, k := range style.Kinds() {
		props := style.DefaultSchema.Properties(k)
		fmt.Fprintf(&b, "### %s\n\n", k)
		quoted := make([]string, len(props))
		for i, p := range props {
			quoted[i] = "`" + p + "`"
		}
		b.WriteString(strings.Join(quoted, ", "))
		b.WriteString("\n\n")
	}

	b.WriteString("## Shorthands\n\n")
	b.WriteString("A side property written explicitly wins over its shorthand.\n\n")
	b.WriteString("| Shorthand | Expands to |\n|---|---|\n")
	sh := style.Shorthands()
	names := make([]string, 0, len(sh))
	for name := range sh {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "| `%s` | `%s`, `%s` |\n", name, sh[name][0], sh[name][1])
	}

	b.WriteString("\n## Platforms\n\n")
	for _, p := range platform.All() {
		f := p.Cosmetics().Frame
		fmt.Fprintf(&b, "- **%s**: %dx%d frame\n", p, f.Width, f.Height)
	}
	return b.String()
}

// renderDocs renders the reference page served at /docs.
func renderDocs(title string) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(docsMarkdown()), &body); err != nil {
		return nil, fmt.Errorf("render docs: %w", err)
	}

	var page bytes.Buffer
	err := docsTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("render docs: %w", err)
	}
	return page.Bytes(), nil
}
