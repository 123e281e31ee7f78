// Package assets embeds the editor page, its client script and stylesheet,
// and the runtime injected into every sandbox document.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed client/*
var clientFS embed.FS

//go:embed sandbox/runtime.js
var sandboxFS embed.FS

// ClientFS returns the embedded client files
func ClientFS() fs.FS {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetEditorHTML returns the editor page template
func GetEditorHTML() ([]byte, error) {
	return clientFS.ReadFile("client/index.html")
}

// GetEditorJS returns the editor client script
func GetEditorJS() ([]byte, error) {
	return clientFS.ReadFile("client/editor.js")
}

// GetEditorCSS returns the editor stylesheet
func GetEditorCSS() ([]byte, error) {
	return clientFS.ReadFile("client/editor.css")
}

// GetSandboxRuntime returns the script that implements the primitives inside
// sandbox documents
func GetSandboxRuntime() ([]byte, error) {
	return sandboxFS.ReadFile("sandbox/runtime.js")
}
