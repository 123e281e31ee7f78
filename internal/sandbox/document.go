// Package sandbox builds the isolated documents that execute user code and
// defines the messages those documents send back.
//
// Every compile produces a fresh document tagged with a generation number.
// The document loads the UI runtime and the JSX transpiler, installs the
// primitive runtime, evaluates the user code against it and mounts the
// entry component. The outcome is reported as a ready or error Message.
package sandbox

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/livetemplate/mint/internal/assets"
	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/shim"
	"github.com/livetemplate/mint/internal/transform"
)

// Options configures where the document loads its libraries from.
type Options struct {
	ReactURL    string
	ReactDOMURL string
	BabelURL    string
}

// DefaultOptions loads production builds from unpkg.
func DefaultOptions() Options {
	return Options{
		ReactURL:    "https://unpkg.com/react@18.2.0/umd/react.production.min.js",
		ReactDOMURL: "https://unpkg.com/react-dom@18.2.0/umd/react-dom.production.min.js",
		BabelURL:    "https://unpkg.com/@babel/standalone@7.23.10/babel.min.js",
	}
}

// IframeSandbox is the sandbox attribute the host page must use for the
// preview frame. Scripts and native dialogs are allowed; same-origin access
// is not.
const IframeSandbox = "allow-scripts allow-modals"

// Document is one generation of the preview.
type Document struct {
	Generation uint64
	Entry      string
	Profile    platform.Profile
	HTML       string
}

// Builder renders preview documents.
type Builder struct {
	opts    Options
	tmpl    *template.Template
	runtime template.JS
}

// NewBuilder parses the document template and loads the embedded runtime.
func NewBuilder(opts Options) (*Builder, error) {
	def := DefaultOptions()
	if opts.ReactURL == "" {
		opts.ReactURL = def.ReactURL
	}
	if opts.ReactDOMURL == "" {
		opts.ReactDOMURL = def.ReactDOMURL
	}
	if opts.BabelURL == "" {
		opts.BabelURL = def.BabelURL
	}

	js, err := assets.GetSandboxRuntime()
	if err != nil {
		return nil, fmt.Errorf("load sandbox runtime: %w", err)
	}
	tmpl, err := template.New("document").Parse(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse document template: %w", err)
	}
	return &Builder{opts: opts, tmpl: tmpl, runtime: template.JS(js)}, nil
}

// Options returns the library locations the builder uses.
func (b *Builder) Options() Options {
	return b.opts
}

type bootOptions struct {
	Generation uint64             `json:"generation"`
	Entry      string             `json:"entry"`
	Registry   string             `json:"registry"`
	Source     string             `json:"source"`
	Config     shim.RuntimeConfig `json:"config"`
}

type documentData struct {
	Options
	Generation    uint64
	Platform      platform.Profile
	AppBackground template.CSS
	TextColor     template.CSS
	FontFamily    template.CSS
	StatusBar     template.HTML
	Runtime       template.JS
	Boot          bootOptions
}

// Build renders the document for one compiled unit.
func (b *Builder) Build(generation uint64, unit *transform.Unit, p platform.Profile) (*Document, error) {
	if unit == nil {
		return nil, fmt.Errorf("build generation %d: no compiled unit", generation)
	}
	lib := shim.New(p)
	p = lib.Profile()
	c := p.Cosmetics()

	bar, err := lib.StatusBarHTML()
	if err != nil {
		return nil, fmt.Errorf("build generation %d: %w", generation, err)
	}

	data := documentData{
		Options:       b.opts,
		Generation:    generation,
		Platform:      p,
		AppBackground: template.CSS(c.AppBackground),
		TextColor:     template.CSS(c.TextColor),
		FontFamily:    template.CSS(c.FontFamily),
		StatusBar:     template.HTML(bar),
		Runtime:       b.runtime,
		Boot: bootOptions{
			Generation: generation,
			Entry:      unit.Entry,
			Registry:   transform.Registry,
			Source:     unit.Code,
			Config:     lib.RuntimeConfig(),
		},
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("build generation %d: %w", generation, err)
	}
	return &Document{
		Generation: generation,
		Entry:      unit.Entry,
		Profile:    p,
		HTML:       buf.String(),
	}, nil
}

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Mint preview</title>
<style>
* { box-sizing: border-box; }
html, body { margin: 0; padding: 0; height: 100%; }
body {
  display: flex;
  flex-direction: column;
  background: {{.AppBackground}};
  color: {{.TextColor}};
  font-family: {{.FontFamily}};
}
#app { flex: 1 1 0%; display: flex; flex-direction: column; min-height: 0; overflow: auto; }
</style>
<script src="{{.ReactURL}}" crossorigin></script>
<script src="{{.ReactDOMURL}}" crossorigin></script>
<script src="{{.BabelURL}}"></script>
<script>{{.Runtime}}</script>
</head>
<body data-platform="{{.Platform}}" data-generation="{{.Generation}}">
{{.StatusBar}}
<div id="app"></div>
<script>MintRuntime.boot({{.Boot}});</script>
</body>
</html>
`
