package shim

import (
	"fmt"

	"github.com/livetemplate/mint/internal/style"
)

// StatusBarHeight is the height of the simulated device status bar in pixels.
const StatusBarHeight = 44

// StatusBar builds the device status bar shown above the app. It is composed
// from the library's own primitives so it follows the same style rules as
// user code.
func (l *Library) StatusBar() (*Node, error) {
	c := l.cosmetics

	label := func(text string, extra style.Bag) (*Node, error) {
		return l.Render(Text, Props{
			"style": []any{style.Bag{"color": c.StatusBarText, "fontSize": 14, "fontWeight": "600"}, extra},
		}, TextNode(text))
	}

	clock, err := label(c.Clock, nil)
	if err != nil {
		return nil, err
	}
	icons, err := label(c.StatusIcons, style.Bag{"fontSize": 12})
	if err != nil {
		return nil, err
	}

	bar, err := l.Render(View, Props{
		"testID": "status-bar",
		"style": style.Bag{
			"height":            StatusBarHeight,
			"flexDirection":     "row",
			"justifyContent":    "space-between",
			"alignItems":        "center",
			"paddingHorizontal": 20,
			"backgroundColor":   c.StatusBarBackground,
		},
	}, clock, icons)
	if err != nil {
		return nil, fmt.Errorf("status bar: %w", err)
	}
	return bar, nil
}

// StatusBarHTML renders StatusBar as markup.
func (l *Library) StatusBarHTML() (string, error) {
	bar, err := l.StatusBar()
	if err != nil {
		return "", err
	}
	return bar.HTML()
}
