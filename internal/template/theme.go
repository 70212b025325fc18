package template

import (
	"encoding/json"
	"fmt"

	"epistola/internal/store"
)

// PageSettings describe the page geometry handed to document assembly.
type PageSettings struct {
	Size        string  `json:"size,omitempty"`        // A4, Letter, Legal (default: A4)
	Orientation string  `json:"orientation,omitempty"` // P or L (default: P)
	MarginTop   float64 `json:"marginTop,omitempty"`
	MarginRight float64 `json:"marginRight,omitempty"`
	MarginBot   float64 `json:"marginBottom,omitempty"`
	MarginLeft  float64 `json:"marginLeft,omitempty"`
}

// Preset is a named block style. A non-empty NodeType scopes the preset to
// nodes of that type only.
type Preset struct {
	NodeType string `json:"nodeType,omitempty"`
	Styles   Style  `json:"styles"`
}

// Theme bundles a tenant's default document styles, page settings and
// named block presets.
type Theme struct {
	DocumentStyles Style             `json:"documentStyles"`
	PageSettings   *PageSettings     `json:"pageSettings,omitempty"`
	BlockPresets   map[string]Preset `json:"blockPresets"`
}

// DecodeTheme inflates a persisted theme row into its in-memory form.
func DecodeTheme(row *store.Theme) (*Theme, error) {
	th := &Theme{
		DocumentStyles: Style{},
		BlockPresets:   map[string]Preset{},
	}

	if len(row.DocumentStyles) > 0 {
		if err := json.Unmarshal(row.DocumentStyles, &th.DocumentStyles); err != nil {
			return nil, fmt.Errorf("failed to decode theme %s document styles: %w", row.ID, err)
		}
	}
	if len(row.PageSettings) > 0 && string(row.PageSettings) != "null" {
		th.PageSettings = &PageSettings{}
		if err := json.Unmarshal(row.PageSettings, th.PageSettings); err != nil {
			return nil, fmt.Errorf("failed to decode theme %s page settings: %w", row.ID, err)
		}
	}
	if len(row.BlockPresets) > 0 {
		if err := json.Unmarshal(row.BlockPresets, &th.BlockPresets); err != nil {
			return nil, fmt.Errorf("failed to decode theme %s block presets: %w", row.ID, err)
		}
	}

	return th, nil
}

// Preset looks up a named preset applicable to the given node type.
// A preset scoped to a different node type does not apply.
func (t *Theme) Preset(name, nodeType string) *Preset {
	if name == "" {
		return nil
	}
	p, ok := t.BlockPresets[name]
	if !ok {
		return nil
	}
	if p.NodeType != "" && p.NodeType != nodeType {
		return nil
	}
	return &p
}
