// Package platform defines the preview profiles. A profile only changes
// cosmetic defaults of the rendered preview, never component behaviour.
package platform

import (
	"fmt"
	"strings"
)

// Profile identifies the simulated device platform.
type Profile string

const (
	IOS     Profile = "ios"
	Android Profile = "android"
)

// Default is the profile used when none is selected.
const Default = IOS

// All returns every supported profile in display order.
func All() []Profile {
	return []Profile{IOS, Android}
}

// Parse converts a user supplied name into a Profile.
func Parse(name string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(name))) {
	case IOS:
		return IOS, nil
	case Android:
		return Android, nil
	case "":
		return Default, nil
	default:
		return "", fmt.Errorf("unknown platform %q (expected ios or android)", name)
	}
}

// Valid reports whether p is one of the supported profiles.
func (p Profile) Valid() bool {
	return p == IOS || p == Android
}

func (p Profile) String() string {
	return string(p)
}

// Cosmetics holds the values a profile injects into the preview document.
type Cosmetics struct {
	StatusBarBackground string
	StatusBarText       string
	PageBackground      string
	AppBackground       string
	TextColor           string
	FontFamily          string
	Clock               string
	StatusIcons         string
	Frame               Frame
}

// Frame describes the device bezel drawn around the preview.
type Frame struct {
	Width        int
	Height       int
	Radius       string
	ScreenRadius string
	Bezel        string
	Notch        bool
}

// Cosmetics returns the cosmetic constants for p. Unknown profiles fall back
// to the default profile.
func (p Profile) Cosmetics() Cosmetics {
	switch p {
	case Android:
		return Cosmetics{
			StatusBarBackground: "#2196F3",
			StatusBarText:       "#ffffff",
			PageBackground:      "#ffffff",
			AppBackground:       "#f5f5f5",
			TextColor:           "#000000",
			FontFamily:          "'Roboto', 'Helvetica Neue', sans-serif",
			Clock:               "12:30",
			StatusIcons:         "WiFi 4G 🔋",
			Frame: Frame{
				Width:        360,
				Height:       740,
				Radius:       "2rem",
				ScreenRadius: "1.8rem",
				Bezel:        "#1f2937",
			},
		}
	default:
		return Cosmetics{
			StatusBarBackground: "#000000",
			StatusBarText:       "#ffffff",
			PageBackground:      "#000000",
			AppBackground:       "#ffffff",
			TextColor:           "#000000",
			FontFamily:          "-apple-system, BlinkMacSystemFont, 'San Francisco', 'Segoe UI', sans-serif",
			Clock:               "9:41",
			StatusIcons:         "📶 📶 🔋",
			Frame: Frame{
				Width:        375,
				Height:       812,
				Radius:       "3rem",
				ScreenRadius: "2.5rem",
				Bezel:        "#000000",
				Notch:        true,
			},
		}
	}
}
