// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mermaid

import (
	"fmt"
	"html/template"
	"io"
)

// htmlTemplate renders a standalone preview page. The diagram source is
// inlined into a <pre class="mermaid"> block and rendered client-side.
var htmlTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; background: {{.Background}}; color: {{.Foreground}}; }
  h1 { font-size: 1.2rem; font-weight: 600; }
  .meta { color: #888; font-size: 0.85rem; margin-bottom: 1rem; }
  pre.mermaid { background: transparent; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">generated {{.Generated}}</div>
<pre class="mermaid">
{{.Diagram}}
</pre>
<script type="module">
  import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";
  mermaid.initialize({ startOnLoad: true, theme: "{{.MermaidTheme}}", securityLevel: "strict" });
</script>
</body>
</html>
`))

// HTMLPage describes one rendered preview document.
type HTMLPage struct {
	Title     string
	Diagram   string
	Theme     *Theme
	Generated string
}

// WriteHTML renders a self-contained preview page around an unfenced
// diagram. The diagram must be serialized without the markdown fence.
func WriteHTML(w io.Writer, page HTMLPage) error {
	theme := page.Theme
	if theme == nil {
		theme = DefaultTheme()
	}
	background, foreground, mermaidTheme := "#ffffff", "#202124", "default"
	if theme.Name == "dark" {
		background, foreground, mermaidTheme = "#202124", "#e8eaed", "dark"
	}
	data := struct {
		Title        string
		Diagram      string
		Generated    string
		Background   template.CSS
		Foreground   template.CSS
		MermaidTheme string
	}{
		Title:        page.Title,
		Diagram:      page.Diagram,
		Generated:    page.Generated,
		Background:   template.CSS(background),
		Foreground:   template.CSS(foreground),
		MermaidTheme: mermaidTheme,
	}
	if err := htmlTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering html preview: %w", err)
	}
	return nil
}
