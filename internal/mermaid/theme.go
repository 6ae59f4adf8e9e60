// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mermaid

import (
	"fmt"
	"io"
	"sort"
)

// Theme maps node class names to Mermaid classDef style strings.
type Theme struct {
	Name string

	// Styles maps class name to a classDef body, e.g.
	// "fill:#e8f4fd,stroke:#2a6,stroke-width:2px".
	Styles map[string]string
}

// DefaultTheme is the light palette.
func DefaultTheme() *Theme {
	return &Theme{
		Name: "default",
		Styles: map[string]string{
			"entry":    "fill:#e8f4fd,stroke:#1a73e8,stroke-width:2px",
			"greeting": "fill:#fef7e0,stroke:#f9ab00",
			"decision": "fill:#fce8e6,stroke:#d93025",
			"target":   "fill:#e6f4ea,stroke:#188038",
			"terminal": "fill:#f1f3f4,stroke:#5f6368",
			"settings": "fill:#f8f9fa,stroke:#dadce0,stroke-dasharray: 5 5",
			"agent":    "fill:#e8f0fe,stroke:#1967d2",
			"schedule": "fill:#f3e8fd,stroke:#9334e6",
			"warning":  "fill:#fff0f0,stroke:#c5221f,stroke-width:2px",
		},
	}
}

// DarkTheme is the dark palette.
func DarkTheme() *Theme {
	return &Theme{
		Name: "dark",
		Styles: map[string]string{
			"entry":    "fill:#1f3a5f,stroke:#8ab4f8,stroke-width:2px,color:#e8eaed",
			"greeting": "fill:#4a3c10,stroke:#fdd663,color:#e8eaed",
			"decision": "fill:#5c1f1b,stroke:#f28b82,color:#e8eaed",
			"target":   "fill:#1e3a29,stroke:#81c995,color:#e8eaed",
			"terminal": "fill:#3c4043,stroke:#9aa0a6,color:#e8eaed",
			"settings": "fill:#2d2e31,stroke:#5f6368,stroke-dasharray: 5 5,color:#e8eaed",
			"agent":    "fill:#1f3150,stroke:#8ab4f8,color:#e8eaed",
			"schedule": "fill:#3c2a52,stroke:#c58af9,color:#e8eaed",
			"warning":  "fill:#4a1513,stroke:#f28b82,stroke-width:2px,color:#e8eaed",
		},
	}
}

// ThemeByName resolves a configured theme name, falling back to the
// default palette for unknown names.
func ThemeByName(name string) *Theme {
	switch name {
	case "dark":
		return DarkTheme()
	default:
		return DefaultTheme()
	}
}

// Merge overlays per-class style overrides onto the theme.
func (t *Theme) Merge(overrides map[string]string) {
	for class, style := range overrides {
		if style == "" {
			continue
		}
		t.Styles[class] = style
	}
}

// write emits classDef declarations plus class membership lines for
// every class that has at least one node. Classes are ordered by name
// so output stays byte-stable across runs.
func (t *Theme) write(w io.Writer, members map[string][]string) {
	classes := make([]string, 0, len(members))
	for class := range members {
		if _, ok := t.Styles[class]; ok {
			classes = append(classes, class)
		}
	}
	sort.Strings(classes)

	for _, class := range classes {
		fmt.Fprintf(w, "    classDef %s %s\n", class, t.Styles[class])
	}
	for _, class := range classes {
		for _, id := range members[class] {
			fmt.Fprintf(w, "    class %s %s\n", id, class)
		}
	}
}
