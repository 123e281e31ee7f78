// Package shim implements the stand-ins for the mobile framework primitives.
//
// The Library is the single behaviour table for every primitive: the Go
// reference renderer builds Node trees from it and RuntimeConfig exports the
// same table to the browser runtime that executes user code.
package shim

import (
	"fmt"
	"maps"
	"slices"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/style"
)

// Props are the properties passed to a primitive by user code.
type Props map[string]any

// Definition describes one primitive.
type Definition struct {
	Name        string
	Kind        style.Kind // empty for non-visual members
	Tag         string     // empty for non-visual members
	Description string
}

// Visual reports whether the primitive renders an element.
func (d Definition) Visual() bool {
	return d.Tag != ""
}

// Names of the supported primitives.
const (
	View             = "View"
	Text             = "Text"
	TouchableOpacity = "TouchableOpacity"
	TextInput        = "TextInput"
	ScrollView       = "ScrollView"
	Alert            = "Alert"
	StyleSheet       = "StyleSheet"
	Platform         = "Platform"
	StatusBar        = "StatusBar"
)

var definitions = []Definition{
	{View, style.Container, "div", "Block container, vertical flex stacking unless overridden."},
	{Text, style.Text, "span", "Inline text. Defaults to 16px in the platform text colour; no inheritance chain."},
	{TouchableOpacity, style.Touchable, "button", "Clickable element. onPress runs once per click; gestures are not modelled."},
	{TextInput, style.Input, "input", "Text field. value seeds the initial contents only; every change calls onChangeText."},
	{ScrollView, style.Scroll, "div", "Scrollable block with an inner sizing node; horizontal switches axis and stacking together."},
	{Alert, "", "", "Alert.alert(title, message, buttons) opens a blocking native dialog."},
	{StyleSheet, "", "", "StyleSheet.create(styles) returns its argument unchanged."},
	{Platform, "", "", "Platform.OS names the active profile; Platform.select picks a branch."},
	{StatusBar, "", "", "Accepted for compatibility; renders nothing."},
}

// UnknownPrimitiveError is returned when code asks for a primitive outside
// the supported set.
type UnknownPrimitiveError struct {
	Name string
}

func (e *UnknownPrimitiveError) Error() string {
	return fmt.Sprintf("%s is not a supported primitive", e.Name)
}

// Library renders primitives for one platform profile.
type Library struct {
	profile   platform.Profile
	cosmetics platform.Cosmetics
	schema    style.Schema
}

// New returns the library for profile p.
func New(p platform.Profile) *Library {
	if !p.Valid() {
		p = platform.Default
	}
	return &Library{
		profile:   p,
		cosmetics: p.Cosmetics(),
		schema:    style.DefaultSchema,
	}
}

// Profile returns the profile the library was built for.
func (l *Library) Profile() platform.Profile {
	return l.profile
}

// Definitions returns every supported primitive in declaration order.
func (l *Library) Definitions() []Definition {
	return slices.Clone(definitions)
}

// Names returns the binding names exposed to user code.
func (l *Library) Names() []string {
	names := make([]string, len(definitions))
	for i, d := range definitions {
		names[i] = d.Name
	}
	return names
}

// Lookup finds a primitive by name.
func (l *Library) Lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Base returns the shim-authored default style for a visual primitive
// variant. Variants are the primitive name optionally followed by a colon
// and a qualifier, for example "ScrollView:content".
func (l *Library) Base(variant string) style.Bag {
	return maps.Clone(l.bases()[variant])
}

func (l *Library) bases() map[string]style.Bag {
	c := l.cosmetics
	return map[string]style.Bag{
		View: {
			"display":       "flex",
			"flexDirection": "column",
		},
		Text: {
			"fontSize": 16,
			"color":    c.TextColor,
		},
		TouchableOpacity: {
			"border":          "none",
			"backgroundColor": "transparent",
			"cursor":          "pointer",
			"padding":         0,
			"display":         "flex",
			"alignItems":      "center",
			"justifyContent":  "center",
			"outline":         "none",
			"fontFamily":      "inherit",
		},
		TextInput: {
			"padding":         10,
			"border":          "1px solid #ccc",
			"borderRadius":    4,
			"fontSize":        16,
			"outline":         "none",
			"backgroundColor": "#fff",
			"color":           c.TextColor,
			"fontFamily":      "inherit",
		},
		ScrollView: {
			"overflow":                "auto",
			"WebkitOverflowScrolling": "touch",
			"overscrollBehavior":      "contain",
			"scrollBehavior":          "smooth",
		},
		ScrollView + ":horizontal": {
			"overflowX":     "auto",
			"overflowY":     "hidden",
			"display":       "flex",
			"flexDirection": "row",
		},
		ScrollView + ":hiddenIndicators": {
			"scrollbarWidth":  "none",
			"msOverflowStyle": "none",
		},
		ScrollView + ":content": {
			"minHeight":     "100%",
			"display":       "flex",
			"flexDirection": "column",
		},
		ScrollView + ":contentHorizontal": {
			"minHeight":     "auto",
			"display":       "flex",
			"flexDirection": "row",
		},
	}
}

// resolve resolves the authored style prop of a primitive into its final
// inline style.
func (l *Library) resolve(name string, kind style.Kind, authored any) style.Bag {
	translated := style.Derive(l.schema.Translate(style.Flatten(authored), kind), kind)
	return style.Merge(l.bases()[name], translated)
}

// Render builds the node for primitive name. Non-visual members and
// unknown names are rejected.
func (l *Library) Render(name string, props Props, children ...*Node) (*Node, error) {
	def, ok := l.Lookup(name)
	if !ok {
		return nil, &UnknownPrimitiveError{Name: name}
	}
	if !def.Visual() {
		return nil, fmt.Errorf("%s does not render an element", name)
	}
	if props == nil {
		props = Props{}
	}

	switch name {
	case TouchableOpacity:
		return l.touchable(props, children), nil
	case TextInput:
		return l.textInput(props), nil
	case ScrollView:
		return l.scrollView(props, children), nil
	default:
		return &Node{
			Tag:      def.Tag,
			Style:    l.resolve(name, def.Kind, props["style"]),
			Attrs:    passthroughAttrs(props),
			Children: children,
		}, nil
	}
}

func (l *Library) touchable(props Props, children []*Node) *Node {
	n := &Node{
		Tag:      "button",
		Style:    l.resolve(TouchableOpacity, style.Touchable, props["style"]),
		Attrs:    passthroughAttrs(props),
		Children: children,
	}
	n.Attrs["type"] = "button"
	if onPress, ok := props["onPress"].(func()); ok {
		n.On("click", func(string) { onPress() })
	}
	return n
}

func (l *Library) textInput(props Props) *Node {
	n := &Node{
		Tag:   "input",
		Style: l.resolve(TextInput, style.Input, props["style"]),
		Attrs: passthroughAttrs(props),
	}
	n.Attrs["type"] = "text"
	if v, ok := props["value"].(string); ok {
		n.Attrs["value"] = v
	} else {
		n.Attrs["value"] = ""
	}
	if ph, ok := props["placeholder"].(string); ok {
		n.Attrs["placeholder"] = ph
	}

	// value only seeds the field; later changes live on the node.
	onChangeText, _ := props["onChangeText"].(func(string))
	n.On("input", func(value string) {
		n.Attrs["value"] = value
		if onChangeText != nil {
			onChangeText(value)
		}
	})
	return n
}

func (l *Library) scrollView(props Props, children []*Node) *Node {
	horizontal, _ := props["horizontal"].(bool)

	outer := l.resolve(ScrollView, style.Scroll, props["style"])
	if horizontal {
		outer = style.Merge(outer, l.bases()[ScrollView+":horizontal"])
	}
	if hidesIndicator(props, "showsVerticalScrollIndicator") || hidesIndicator(props, "showsHorizontalScrollIndicator") {
		outer = style.Merge(outer, l.bases()[ScrollView+":hiddenIndicators"])
	}

	contentBase := l.bases()[ScrollView+":content"]
	if horizontal {
		contentBase = l.bases()[ScrollView+":contentHorizontal"]
	}
	content := style.Merge(contentBase, l.schema.Translate(style.Flatten(props["contentContainerStyle"]), style.Container))

	return &Node{
		Tag:   "div",
		Style: outer,
		Attrs: passthroughAttrs(props),
		Children: []*Node{{
			Tag:      "div",
			Style:    content,
			Children: children,
		}},
	}
}

func hidesIndicator(props Props, key string) bool {
	v, ok := props[key].(bool)
	return ok && !v
}

// passthroughAttrs keeps the few string props that are meaningful as DOM
// attributes.
func passthroughAttrs(props Props) map[string]string {
	attrs := map[string]string{}
	if id, ok := props["testID"].(string); ok {
		attrs["data-testid"] = id
	}
	if label, ok := props["accessibilityLabel"].(string); ok {
		attrs["aria-label"] = label
	}
	return attrs
}

// StyleSheetCreate is the identity function behind StyleSheet.create.
func StyleSheetCreate[T any](styles T) T {
	return styles
}

// PlatformDescriptor is the value bound to Platform in user code.
type PlatformDescriptor struct {
	OS string
}

// Platform returns the descriptor for the library's profile.
func (l *Library) Platform() PlatformDescriptor {
	return PlatformDescriptor{OS: string(l.profile)}
}

// Select returns the branch for the active platform, falling back to
// "default".
func (p PlatformDescriptor) Select(options map[string]any) any {
	if v, ok := options[p.OS]; ok {
		return v
	}
	return options["default"]
}

// AlertButton is one button passed to Alert.alert.
type AlertButton struct {
	Text    string
	OnPress func()
}

// Dialog is the host-native modal surface.
type Dialog interface {
	Alert(text string)
	Confirm(text string) bool
}

// ShowAlert performs Alert.alert against d. With buttons the dialog asks
// for confirmation and runs the first button's handler when accepted.
func ShowAlert(d Dialog, title, message string, buttons []AlertButton) {
	text := title
	if message != "" {
		text += "\n\n" + message
	}
	if len(buttons) == 0 {
		d.Alert(text)
		return
	}
	if d.Confirm(text) && buttons[0].OnPress != nil {
		buttons[0].OnPress()
	}
}
