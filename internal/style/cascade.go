// Package style resolves the effective style of a template node.
//
// The cascade order is fixed: theme document defaults, then document-level
// overrides, then the node's named preset, then the node's inline styles.
// Later layers win per property, never wholesale.
package style

import (
	"epistola/internal/template"
)

// inheritable lists the typography properties that cascade down through
// nested structural nodes. Spacing, borders, background and layout
// properties apply only to the node they are set on.
var inheritable = map[string]bool{
	"fontFamily": true,
	"fontSize":   true,
	"fontWeight": true,
	"fontStyle":  true,
	"textColor":  true,
	"lineHeight": true,
	"textAlign":  true,
}

// Effective merges the cascade layers for one node into a single style map.
// Nil layers are skipped; the result is always a fresh map.
func Effective(themeDefaults, docOverride template.Style, preset *template.Preset, inline template.Style) template.Style {
	out := template.Style{}
	merge(out, themeDefaults)
	merge(out, docOverride)
	if preset != nil {
		merge(out, preset.Styles)
	}
	merge(out, inline)
	return out
}

// Inherited filters a parent's effective style down to the properties that
// cascade into children.
func Inherited(parent template.Style) template.Style {
	out := template.Style{}
	for k, v := range parent {
		if inheritable[k] {
			out[k] = v
		}
	}
	return out
}

// Merge overlays layer onto base per key and returns a fresh map.
func Merge(base, layer template.Style) template.Style {
	out := base.Clone()
	merge(out, layer)
	return out
}

func merge(dst, src template.Style) {
	for k, v := range src {
		dst[k] = v
	}
}
