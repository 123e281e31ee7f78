package style

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// Bag is a style object as authored in user code, or its translated form.
type Bag map[string]any

// shorthand expands one mobile-only property into two native sides.
type shorthand struct {
	name  string
	sides [2]string
}

var shorthands = []shorthand{
	{"paddingHorizontal", [2]string{"paddingLeft", "paddingRight"}},
	{"paddingVertical", [2]string{"paddingTop", "paddingBottom"}},
	{"marginHorizontal", [2]string{"marginLeft", "marginRight"}},
	{"marginVertical", [2]string{"marginTop", "marginBottom"}},
}

// Shorthands returns the shorthand expansion table.
func Shorthands() map[string][2]string {
	out := make(map[string][2]string, len(shorthands))
	for _, sh := range shorthands {
		out[sh.name] = sh.sides
	}
	return out
}

// Fill values applied to a container declaring flex: 1.
const (
	FillFlex      = "1 1 0%"
	FillMinHeight = "100%"
)

// Translate maps bag onto the native properties permitted for kind using
// DefaultSchema.
func Translate(bag Bag, kind Kind) Bag {
	return DefaultSchema.Translate(bag, kind)
}

// Translate maps bag onto the native properties permitted for kind.
//
// Shorthands expand to their sides, but a side given literally in bag always
// wins over the shorthand. The input is never modified and the output is a
// fresh map.
func (s Schema) Translate(bag Bag, kind Kind) Bag {
	out := make(Bag, len(bag))
	for prop, value := range bag {
		if value == nil || !s.Allows(kind, prop) {
			continue
		}
		out[prop] = value
	}

	for _, sh := range shorthands {
		value, ok := bag[sh.name]
		if !ok || value == nil {
			continue
		}
		for _, side := range sh.sides {
			if !s.Allows(kind, side) {
				continue
			}
			if literal, set := bag[side]; set && literal != nil {
				continue
			}
			out[side] = value
		}
	}

	if kind == Container && IsOne(bag["flex"]) {
		out["flex"] = FillFlex
		out["minHeight"] = FillMinHeight
	}

	return out
}

// Derive adds presentational declarations implied by an already translated
// bag, such as a solid border style whenever a border width is present.
func Derive(bag Bag, kind Kind) Bag {
	out := maps.Clone(bag)
	if out == nil {
		out = Bag{}
	}
	width, ok := out["borderWidth"]
	if !ok || IsZero(width) {
		return out
	}
	if _, set := out["borderStyle"]; !set {
		out["borderStyle"] = "solid"
	}
	if kind == Input {
		color := "#ccc"
		if c, ok := out["borderColor"].(string); ok && c != "" {
			color = c
		}
		out["border"] = fmt.Sprintf("%s %s %s", cssLength(width), out["borderStyle"], color)
	}
	return out
}

// Merge overlays later bags onto earlier ones and returns a new bag.
func Merge(bags ...Bag) Bag {
	out := Bag{}
	for _, b := range bags {
		maps.Copy(out, b)
	}
	return out
}

// Flatten resolves a style prop that may be a single bag, a nested list of
// bags, or falsy entries, merging left to right.
func Flatten(values ...any) Bag {
	out := Bag{}
	for _, v := range values {
		flattenInto(out, v)
	}
	return out
}

func flattenInto(out Bag, v any) {
	switch val := v.(type) {
	case nil, bool:
	case Bag:
		maps.Copy(out, val)
	case map[string]any:
		maps.Copy(out, val)
	case []any:
		for _, item := range val {
			flattenInto(out, item)
		}
	case []Bag:
		for _, item := range val {
			maps.Copy(out, item)
		}
	}
}

// IsOne reports whether v is the number 1 in any numeric representation.
func IsOne(v any) bool {
	f, ok := number(v)
	return ok && f == 1
}

// IsZero reports whether v is a numeric zero.
func IsZero(v any) bool {
	f, ok := number(v)
	return ok && f == 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// cssLength renders a numeric length in pixels and passes strings through.
func cssLength(v any) string {
	if f, ok := number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64) + "px"
	}
	return fmt.Sprint(v)
}
