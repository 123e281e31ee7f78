package shim

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/livetemplate/mint/internal/style"
)

// Handler receives an event dispatched on a Node. Value carries the new
// field contents for change events and is empty otherwise.
type Handler func(value string)

// Node is one element of a rendered shim tree. A Node with an empty Tag is a
// text node.
type Node struct {
	Tag      string
	Text     string
	Style    style.Bag
	Attrs    map[string]string
	Children []*Node

	handlers map[string]Handler
}

// TextNode returns a text node.
func TextNode(s string) *Node {
	return &Node{Text: s}
}

// On registers h for event, replacing any previous handler.
func (n *Node) On(event string, h Handler) {
	if n.handlers == nil {
		n.handlers = make(map[string]Handler)
	}
	n.handlers[event] = h
}

// Dispatch delivers an event to the node and reports whether a handler ran.
func (n *Node) Dispatch(event, value string) bool {
	h, ok := n.handlers[event]
	if !ok {
		return false
	}
	h(value)
	return true
}

// Find returns the first node in depth-first order with the given tag.
func (n *Node) Find(tag string) *Node {
	if n == nil {
		return nil
	}
	if n.Tag == tag {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(tag); found != nil {
			return found
		}
	}
	return nil
}

// TextContent concatenates every text node below n.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if n.Tag == "" {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// HTML serialises the tree.
func (n *Node) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n.htmlNode()); err != nil {
		return "", fmt.Errorf("render %s: %w", n.Tag, err)
	}
	return buf.String(), nil
}

func (n *Node) htmlNode() *html.Node {
	if n.Tag == "" {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}

	hn := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		hn.Attr = append(hn.Attr, html.Attribute{Key: k, Val: n.Attrs[k]})
	}
	if css := CSS(n.Style); css != "" {
		hn.Attr = append(hn.Attr, html.Attribute{Key: "style", Val: css})
	}

	for _, c := range n.Children {
		hn.AppendChild(c.htmlNode())
	}
	return hn
}

// unitless lists numeric properties that must not receive a px suffix.
var unitless = map[string]bool{
	"flex":       true,
	"flexGrow":   true,
	"flexShrink": true,
	"fontWeight": true,
	"lineHeight": true,
	"opacity":    true,
	"zIndex":     true,
}

// CSS renders a style bag as a declaration list with properties in sorted
// order.
func CSS(bag style.Bag) string {
	if len(bag) == 0 {
		return ""
	}
	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(kebab(k))
		b.WriteString(": ")
		b.WriteString(cssValue(k, bag[k]))
	}
	return b.String()
}

func cssValue(prop string, v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return withUnit(prop, strconv.Itoa(val), val == 0)
	case int64:
		return withUnit(prop, strconv.FormatInt(val, 10), val == 0)
	case float64:
		return withUnit(prop, strconv.FormatFloat(val, 'f', -1, 64), val == 0)
	default:
		return fmt.Sprint(val)
	}
}

func withUnit(prop, num string, zero bool) string {
	if unitless[prop] || zero {
		return num
	}
	return num + "px"
}

// kebab converts backgroundColor into background-color and keeps vendor
// prefixes such as WebkitOverflowScrolling as -webkit-overflow-scrolling.
func kebab(prop string) string {
	var b strings.Builder
	for i, r := range prop {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if i == 0 && strings.HasPrefix(prop, "ms") && len(prop) > 2 && unicode.IsUpper(rune(prop[2])) {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}
