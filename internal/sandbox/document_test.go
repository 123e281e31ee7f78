package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/transform"
)

func buildDocument(t *testing.T, src string, generation uint64, p platform.Profile) *Document {
	t.Helper()
	b, err := NewBuilder(Options{})
	require.NoError(t, err)
	unit, err := transform.Transform(src)
	require.NoError(t, err)
	doc, err := b.Build(generation, unit, p)
	require.NoError(t, err)
	return doc
}

func TestBuildDocument(t *testing.T) {
	doc := buildDocument(t, "export default function Home() { return <View /> }", 7, platform.Android)

	assert.Equal(t, uint64(7), doc.Generation)
	assert.Equal(t, "Home", doc.Entry)
	assert.Equal(t, platform.Android, doc.Profile)

	html := doc.HTML
	assert.Contains(t, html, `data-generation="7"`)
	assert.Contains(t, html, `data-platform="android"`)
	assert.Contains(t, html, "react.production.min.js")
	assert.Contains(t, html, "babel.min.js")
	assert.Contains(t, html, "MintRuntime.boot(")
	assert.Contains(t, html, `"entry":"Home"`)
	assert.Contains(t, html, `"registry":"__exports"`)
	assert.Contains(t, html, `"platform":"android"`)
	assert.Contains(t, html, `"generation":7`)
	assert.Contains(t, html, "background: #f5f5f5")
	assert.Contains(t, html, `data-testid="status-bar"`)
	assert.Contains(t, html, "12:30")
}

func TestBuildDocumentOrdersScripts(t *testing.T) {
	html := buildDocument(t, "function App() { return null }", 1, platform.IOS).HTML

	react := strings.Index(html, "react.production.min.js")
	babel := strings.Index(html, "babel.min.js")
	runtime := strings.Index(html, "global.MintRuntime")
	boot := strings.Index(html, "MintRuntime.boot(")
	app := strings.Index(html, `id="app"`)

	require.True(t, react >= 0 && babel >= 0 && runtime >= 0 && boot >= 0 && app >= 0)
	assert.Less(t, react, babel)
	assert.Less(t, babel, runtime)
	assert.Less(t, runtime, app)
	assert.Less(t, app, boot)
}

func TestBuildDocumentEscapesSource(t *testing.T) {
	src := `function App() { return <Text>{"</script><script>alert(1)</script>"}</Text> }`
	html := buildDocument(t, src, 1, platform.IOS).HTML

	assert.NotContains(t, html, "<script>alert(1)")
	assert.Contains(t, html, `\u003c/script\u003e\u003cscript\u003ealert(1)`)
}

func TestBuildDocumentCustomURLs(t *testing.T) {
	b, err := NewBuilder(Options{BabelURL: "http://localhost:9000/babel.js"})
	require.NoError(t, err)

	doc, err := b.Build(1, &transform.Unit{Code: "", Entry: "App"}, platform.IOS)
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, `src="http://localhost:9000/babel.js"`)
	assert.Contains(t, doc.HTML, DefaultOptions().ReactURL)
}

func TestBuildDocumentInvalidProfileFallsBack(t *testing.T) {
	doc := buildDocument(t, "function App() {}", 2, platform.Profile("web"))
	assert.Equal(t, platform.Default, doc.Profile)
}

func TestBuildRequiresUnit(t *testing.T) {
	b, err := NewBuilder(Options{})
	require.NoError(t, err)
	_, err = b.Build(1, nil, platform.IOS)
	assert.Error(t, err)
}
