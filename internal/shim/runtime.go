package shim

import (
	"github.com/livetemplate/mint/internal/style"
)

// RuntimeConfig is the behaviour table handed to the browser runtime. It is
// serialised into every sandbox document.
type RuntimeConfig struct {
	Platform   string                `json:"platform"`
	Names      []string              `json:"names"`
	Schema     style.Schema          `json:"schema"`
	Shorthands map[string][2]string  `json:"shorthands"`
	Fill       map[string]string     `json:"fill"`
	Bases      map[string]style.Bag  `json:"bases"`
	Tags       map[string]string     `json:"tags"`
	Kinds      map[string]style.Kind `json:"kinds"`
}

// RuntimeConfig exports the library for the browser runtime.
func (l *Library) RuntimeConfig() RuntimeConfig {
	tags := map[string]string{}
	kinds := map[string]style.Kind{}
	for _, d := range definitions {
		if d.Visual() {
			tags[d.Name] = d.Tag
			kinds[d.Name] = d.Kind
		}
	}
	return RuntimeConfig{
		Platform:   string(l.profile),
		Names:      l.Names(),
		Schema:     l.schema,
		Shorthands: style.Shorthands(),
		Fill: map[string]string{
			"flex":      style.FillFlex,
			"minHeight": style.FillMinHeight,
		},
		Bases: l.bases(),
		Tags:  tags,
		Kinds: kinds,
	}
}
