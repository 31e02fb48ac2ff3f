// Package cover holds the fixed set of preset cover images a card can use.
package cover

import "strings"

// Site identifies which public domain serves cards using a preset.
type Site string

const (
	SiteAI   Site = "ai"
	SiteMain Site = "main"
)

// Preset is one of the built-in cover images.
type Preset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Site Site   `json:"site"`
}

// DefaultID is used when a display name cannot be matched to a preset.
const DefaultID = "cover-digilife"

var presets = []Preset{
	{ID: "cover-digilife", Name: "DigiLife", Path: "/cover-digilife.png", Site: SiteAI},
	{ID: "cover-vns", Name: "VNS", Path: "/cover-vns.png", Site: SiteMain},
	{ID: "cover-vnsky", Name: "VN Sky", Path: "/cover-vnsky.png", Site: SiteAI},
	{ID: "cover-vnsky-vns", Name: "VN Sky VNS", Path: "/cover-vnsky-vns.png", Site: SiteMain},
}

// All returns a copy of the preset list in display order.
func All() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// Names returns the display names, which is what spreadsheets reference.
func Names() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// ByName matches a display name exactly.
func ByName(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

func ByID(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

func ByPath(path string) (Preset, bool) {
	for _, p := range presets {
		if p.Path == path {
			return p, true
		}
	}
	return Preset{}, false
}

// Default returns the DefaultID preset.
func Default() Preset {
	p, _ := ByID(DefaultID)
	return p
}

// IsInlineImage reports whether v is a data URI carrying an image.
func IsInlineImage(v string) bool {
	return strings.HasPrefix(v, "data:image/") && strings.Contains(v, ";base64,")
}

// IsValidImageCover accepts a preset path or id, or an inline custom image.
func IsValidImageCover(v string) bool {
	if _, ok := ByPath(v); ok {
		return true
	}
	if _, ok := ByID(v); ok {
		return true
	}
	return IsInlineImage(v)
}
