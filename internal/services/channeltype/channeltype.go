// Package channeltype maps free-text fixture channel types onto canonical control identifiers.
package channeltype

import (
	"sort"
	"strings"
)

// Control is a canonical control identifier (pan, dimmer, red, ...).
type Control string

const (
	Pan           Control = "pan"
	Tilt          Control = "tilt"
	FinePan       Control = "finePan"
	FineTilt      Control = "fineTilt"
	Dimmer        Control = "dimmer"
	Red           Control = "red"
	Green         Control = "green"
	Blue          Control = "blue"
	White         Control = "white"
	Amber         Control = "amber"
	UV            Control = "uv"
	Cyan          Control = "cyan"
	Magenta       Control = "magenta"
	Yellow        Control = "yellow"
	Gobo          Control = "gobo"
	GoboRotation  Control = "goboRotation"
	Shutter       Control = "shutter"
	Strobe        Control = "strobe"
	Focus         Control = "focus"
	Zoom          Control = "zoom"
	Iris          Control = "iris"
	Prism         Control = "prism"
	PrismRotation Control = "prismRotation"
	ColorWheel    Control = "colorWheel"
	Frost         Control = "frost"
	Macro         Control = "macro"
	Speed         Control = "speed"
	Lamp          Control = "lamp"
	Reset         Control = "reset"
)

// canonical is the closed set of controls, keyed by lower-case spelling.
var canonical = map[string]Control{}

// aliases maps lower-case naming variants to controls. Extend here only.
var aliases = map[string]Control{
	"pan_coarse":      Pan,
	"tilt_coarse":     Tilt,
	"pan_fine":        FinePan,
	"fine_pan":        FinePan,
	"panfine":         FinePan,
	"tilt_fine":       FineTilt,
	"fine_tilt":       FineTilt,
	"tiltfine":        FineTilt,
	"intensity":       Dimmer,
	"master":          Dimmer,
	"dim":             Dimmer,
	"r":               Red,
	"g":               Green,
	"b":               Blue,
	"w":               White,
	"a":               Amber,
	"ultraviolet":     UV,
	"gobowheel":       Gobo,
	"gobo_wheel":      Gobo,
	"gobo_rotation":   GoboRotation,
	"gobo_rotate":     GoboRotation,
	"gobo_spin":       GoboRotation,
	"prism_rotation":  PrismRotation,
	"prism_rotate":    PrismRotation,
	"color_wheel":     ColorWheel,
	"colour_wheel":    ColorWheel,
	"colourwheel":     ColorWheel,
	"color":           ColorWheel,
	"lamp_on":         Lamp,
	"lamp_control":    Lamp,
	"reset_control":   Reset,
	"function":        Reset,
	"effect_speed":    Speed,
	"movement_speed":  Speed,
	"pan_tilt_speed":  Speed,
	"diffusion":       Frost,
	"program":         Macro,
	"shutter_strobe":  Strobe,
	"strobe_shutter":  Strobe,
	"beam_angle":      Zoom,
	"cto":             White,
	"color_temp":      White,
}

// folded holds separator-free spellings of canonical names and aliases.
var folded = map[string]Control{}

func init() {
	for _, c := range All() {
		canonical[strings.ToLower(string(c))] = c
	}
	for key, c := range canonical {
		folded[fold(key)] = c
	}
	for key, c := range aliases {
		if _, taken := folded[fold(key)]; !taken {
			folded[fold(key)] = c
		}
	}
}

// All returns the canonical controls in declaration order.
func All() []Control {
	return []Control{
		Pan, Tilt, FinePan, FineTilt, Dimmer,
		Red, Green, Blue, White, Amber, UV, Cyan, Magenta, Yellow,
		Gobo, GoboRotation, Shutter, Strobe, Focus, Zoom, Iris,
		Prism, PrismRotation, ColorWheel, Frost, Macro, Speed, Lamp, Reset,
	}
}

// rule is one matching step. Rules are tried in order and the first hit wins.
type rule struct {
	name  string
	match func(key string) (Control, bool)
}

var rules = []rule{
	{"exact", func(key string) (Control, bool) { c, ok := canonical[key]; return c, ok }},
	{"alias", func(key string) (Control, bool) { c, ok := aliases[key]; return c, ok }},
	{"folded", func(key string) (Control, bool) { c, ok := folded[fold(key)]; return c, ok }},
}

// Normalize maps a raw channel type to its canonical control.
// It returns false when the type is not recognised.
func Normalize(raw string) (Control, bool) {
	c, _, ok := match(raw)
	return c, ok
}

// Exact reports whether raw is a canonical name, ignoring case.
func Exact(raw string) bool {
	_, r, ok := match(raw)
	return ok && r == 0
}

// Rule names the matching step that recognised raw, or "" when nothing did.
func Rule(raw string) string {
	_, r, ok := match(raw)
	if !ok {
		return ""
	}
	return rules[r].name
}

func match(raw string) (Control, int, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", -1, false
	}
	for i, r := range rules {
		if c, ok := r.match(key); ok {
			return c, i, true
		}
	}
	return "", -1, false
}

func fold(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.':
			return -1
		}
		return r
	}, s)
}

// Aliases returns the alias spellings registered for a control, sorted.
func Aliases(c Control) []string {
	var out []string
	for key, target := range aliases {
		if target == c {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// IsPanTilt reports whether c drives moving-head position.
func IsPanTilt(c Control) bool {
	switch c {
	case Pan, Tilt, FinePan, FineTilt:
		return true
	}
	return false
}
