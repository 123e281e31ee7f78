// Package style translates mobile style bags into browser inline styles.
package style

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Kind is the component family a style bag is applied to.
type Kind string

const (
	Container Kind = "container"
	Text      Kind = "text"
	Touchable Kind = "touchable"
	Input     Kind = "input"
	Scroll    Kind = "scroll"
)

// Kinds returns every kind known to the translator.
func Kinds() []Kind {
	return []Kind{Container, Text, Touchable, Input, Scroll}
}

// ParseKind validates a kind name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if !slices.Contains(Kinds(), k) {
		return "", fmt.Errorf("unknown style kind %q", name)
	}
	return k, nil
}

var (
	paddingProps = []string{"padding", "paddingTop", "paddingBottom", "paddingLeft", "paddingRight"}
	marginProps  = []string{"margin", "marginTop", "marginBottom", "marginLeft", "marginRight"}
	sizeProps    = []string{"width", "height", "minWidth", "minHeight", "maxWidth", "maxHeight"}
	borderProps  = []string{"borderWidth", "borderColor", "borderStyle", "borderRadius"}
	fontProps    = []string{"color", "fontSize", "fontWeight", "fontStyle", "textAlign", "lineHeight"}
	layoutProps  = []string{"display", "flex", "flexDirection", "flexWrap", "alignItems", "alignSelf", "justifyContent", "gap"}
	placeProps   = []string{"position", "top", "left", "right", "bottom", "zIndex", "overflow"}
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		for _, p := range g {
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Schema maps every component kind to the native properties it may carry.
// Properties outside the list are dropped by Translate.
type Schema map[Kind][]string

// DefaultSchema is the schema used by Translate.
var DefaultSchema = Schema{
	Container: concat(layoutProps, paddingProps, marginProps, sizeProps, borderProps, placeProps, fontProps,
		[]string{"backgroundColor", "opacity"}),
	Text: concat(fontProps, paddingProps, marginProps, sizeProps,
		[]string{"display", "backgroundColor", "borderRadius", "opacity", "letterSpacing", "textTransform", "textDecoration"}),
	Touchable: concat(layoutProps, paddingProps, marginProps, sizeProps, borderProps, placeProps,
		[]string{"backgroundColor", "opacity", "color", "fontSize", "fontWeight"}),
	Input: concat(paddingProps, marginProps, sizeProps, borderProps,
		[]string{"flex", "backgroundColor", "color", "fontSize", "fontWeight", "textAlign", "opacity"}),
	Scroll: concat(paddingProps, marginProps, sizeProps,
		[]string{"flex", "backgroundColor", "borderRadius", "position"}),
}

// Allows reports whether prop is permitted for kind.
func (s Schema) Allows(kind Kind, prop string) bool {
	return slices.Contains(s[kind], prop)
}

// Properties returns a copy of the permitted properties for kind.
func (s Schema) Properties(kind Kind) []string {
	return slices.Clone(s[kind])
}

// MarshalJSON keeps the wire form stable for the browser runtime.
func (s Schema) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(s))
	for k, props := range s {
		out[string(k)] = props
	}
	return json.Marshal(out)
}
