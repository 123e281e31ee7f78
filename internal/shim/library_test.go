package shim

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/style"
)

func TestRenderView(t *testing.T) {
	lib := New(platform.IOS)

	n, err := lib.Render(View, Props{"style": style.Bag{"flex": 1, "backgroundColor": "#f0f9ff"}})
	require.NoError(t, err)

	assert.Equal(t, "div", n.Tag)
	assert.Equal(t, style.FillFlex, n.Style["flex"])
	assert.Equal(t, style.FillMinHeight, n.Style["minHeight"])
	assert.Equal(t, "column", n.Style["flexDirection"])
	assert.Equal(t, "#f0f9ff", n.Style["backgroundColor"])
}

func TestRenderTextDefaultsYieldToAuthoredStyle(t *testing.T) {
	lib := New(platform.Android)

	plain, err := lib.Render(Text, nil, TextNode("hi"))
	require.NoError(t, err)
	assert.Equal(t, 16, plain.Style["fontSize"])
	assert.Equal(t, "#000000", plain.Style["color"])
	assert.Equal(t, "hi", plain.TextContent())

	styled, err := lib.Render(Text, Props{"style": []any{
		map[string]any{"color": "white", "fontSize": 16},
		false,
		style.Bag{"fontSize": 24},
	}})
	require.NoError(t, err)
	assert.Equal(t, "white", styled.Style["color"])
	assert.Equal(t, 24, styled.Style["fontSize"])
}

func TestTouchableFiresOnPressOncePerClick(t *testing.T) {
	lib := New(platform.IOS)
	count := 0

	n, err := lib.Render(TouchableOpacity, Props{
		"onPress": func() { count++ },
		"style":   style.Bag{"paddingHorizontal": 24, "backgroundColor": "#3b82f6"},
	}, TextNode("Press"))
	require.NoError(t, err)

	assert.Equal(t, "button", n.Tag)
	assert.Equal(t, "button", n.Attrs["type"])
	assert.Equal(t, 24, n.Style["paddingLeft"])
	assert.Equal(t, 24, n.Style["paddingRight"])
	assert.NotContains(t, n.Style, "paddingHorizontal")

	require.True(t, n.Dispatch("click", ""))
	assert.Equal(t, 1, count)
	n.Dispatch("click", "")
	assert.Equal(t, 2, count)
}

func TestTouchableWithoutHandler(t *testing.T) {
	n, err := New(platform.IOS).Render(TouchableOpacity, nil)
	require.NoError(t, err)
	assert.False(t, n.Dispatch("click", ""))
}

func TestTextInputSeedsOnceAndForwardsChanges(t *testing.T) {
	lib := New(platform.IOS)
	var got []string

	n, err := lib.Render(TextInput, Props{
		"value":        "seed",
		"placeholder":  "Type here",
		"onChangeText": func(s string) { got = append(got, s) },
		"style":        style.Bag{"borderWidth": 2, "borderColor": "#e5e7eb"},
	})
	require.NoError(t, err)

	assert.Equal(t, "input", n.Tag)
	assert.Equal(t, "text", n.Attrs["type"])
	assert.Equal(t, "seed", n.Attrs["value"])
	assert.Equal(t, "Type here", n.Attrs["placeholder"])
	assert.Equal(t, "2px solid #e5e7eb", n.Style["border"])

	n.Dispatch("input", "a")
	n.Dispatch("input", "ab")
	assert.Equal(t, []string{"a", "ab"}, got)
	assert.Equal(t, "ab", n.Attrs["value"])
}

func TestScrollView(t *testing.T) {
	lib := New(platform.IOS)

	vertical, err := lib.Render(ScrollView, Props{"contentContainerStyle": style.Bag{"padding": 20}}, TextNode("x"))
	require.NoError(t, err)
	require.Len(t, vertical.Children, 1)
	inner := vertical.Children[0]
	assert.Equal(t, "column", inner.Style["flexDirection"])
	assert.Equal(t, 20, inner.Style["padding"])
	assert.Equal(t, "auto", vertical.Style["overflow"])

	horizontal, err := lib.Render(ScrollView, Props{
		"horizontal":                     true,
		"showsHorizontalScrollIndicator": false,
	})
	require.NoError(t, err)
	assert.Equal(t, "row", horizontal.Style["flexDirection"])
	assert.Equal(t, "hidden", horizontal.Style["overflowY"])
	assert.Equal(t, "none", horizontal.Style["scrollbarWidth"])
	assert.Equal(t, "row", horizontal.Children[0].Style["flexDirection"])
	assert.Equal(t, "auto", horizontal.Children[0].Style["minHeight"])
}

func TestRenderRejectsUnknownAndNonVisual(t *testing.T) {
	lib := New(platform.IOS)

	_, err := lib.Render("Image", nil)
	var unknown *UnknownPrimitiveError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Image", unknown.Name)

	_, err = lib.Render(Alert, nil)
	assert.Error(t, err)
	assert.False(t, errors.As(err, &unknown))
}

func TestProfileChangesCosmeticsOnly(t *testing.T) {
	ios, err := New(platform.IOS).Render(TouchableOpacity, Props{"style": style.Bag{"padding": 8}})
	require.NoError(t, err)
	android, err := New(platform.Android).Render(TouchableOpacity, Props{"style": style.Bag{"padding": 8}})
	require.NoError(t, err)
	assert.Equal(t, ios.Style, android.Style)

	iosText, _ := New(platform.IOS).Base(Text)["color"].(string)
	assert.NotEmpty(t, iosText)
}

func TestNewFallsBackToDefaultProfile(t *testing.T) {
	assert.Equal(t, platform.Default, New(platform.Profile("web")).Profile())
}

func TestPlatformSelect(t *testing.T) {
	opts := map[string]any{"ios": 1, "default": 0}

	assert.Equal(t, 1, New(platform.IOS).Platform().Select(opts))
	assert.Equal(t, 0, New(platform.Android).Platform().Select(opts))
	assert.Nil(t, New(platform.Android).Platform().Select(map[string]any{"ios": 1}))
}

func TestStyleSheetCreateIsIdentity(t *testing.T) {
	styles := map[string]style.Bag{"container": {"flex": 1}}
	assert.Equal(t, styles, StyleSheetCreate(styles))
}

type fakeDialog struct {
	alerts   []string
	confirms []string
	accept   bool
}

func (d *fakeDialog) Alert(text string) { d.alerts = append(d.alerts, text) }

func (d *fakeDialog) Confirm(text string) bool {
	d.confirms = append(d.confirms, text)
	return d.accept
}

func TestShowAlert(t *testing.T) {
	d := &fakeDialog{}
	ShowAlert(d, "Success!", "You pressed the button!", nil)
	assert.Equal(t, []string{"Success!\n\nYou pressed the button!"}, d.alerts)

	pressed := false
	d = &fakeDialog{accept: true}
	ShowAlert(d, "Delete?", "", []AlertButton{{Text: "OK", OnPress: func() { pressed = true }}})
	assert.Equal(t, []string{"Delete?"}, d.confirms)
	assert.True(t, pressed)

	pressed = false
	d = &fakeDialog{accept: false}
	ShowAlert(d, "Delete?", "", []AlertButton{{Text: "OK", OnPress: func() { pressed = true }}})
	assert.False(t, pressed)
}

func TestRuntimeConfig(t *testing.T) {
	cfg := New(platform.Android).RuntimeConfig()

	assert.Equal(t, "android", cfg.Platform)
	assert.Equal(t, "button", cfg.Tags[TouchableOpacity])
	assert.Equal(t, style.Input, cfg.Kinds[TextInput])
	assert.NotContains(t, cfg.Tags, Alert)
	assert.Contains(t, cfg.Names, StatusBar)
	assert.Equal(t, [2]string{"paddingLeft", "paddingRight"}, cfg.Shorthands["paddingHorizontal"])

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "schema")
	assert.Equal(t, "1 1 0%", decoded["fill"].(map[string]any)["flex"])
}

func TestStatusBar(t *testing.T) {
	bar, err := New(platform.Android).StatusBar()
	require.NoError(t, err)

	assert.Equal(t, "#2196F3", bar.Style["backgroundColor"])
	assert.Equal(t, StatusBarHeight, bar.Style["height"])
	assert.Equal(t, "status-bar", bar.Attrs["data-testid"])
	assert.Contains(t, bar.TextContent(), "12:30")

	markup, err := New(platform.IOS).StatusBarHTML()
	require.NoError(t, err)
	assert.Contains(t, markup, "9:41")
	assert.Contains(t, markup, `data-testid="status-bar"`)
}
