// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mermaid serializes flow fragments into Mermaid flowchart
// syntax.
//
// The serializer walks fragment statements in order and declares each
// node with its shape brackets exactly once, on first occurrence; every
// later reference to the same id is emitted bare. A Node carrying an
// empty label is a reference by construction and never declares.
package mermaid

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/voicegraph/callflow/internal/flow"
)

// Direction controls diagram orientation.
type Direction string

const (
	DirectionTopDown   Direction = "TB"
	DirectionLeftRight Direction = "LR"
)

// Serializer converts fragments into a Mermaid flowchart document.
type Serializer struct {
	direction Direction
	theme     *Theme
	links     map[string]string

	// fenced wraps the output in a ```mermaid code fence for direct
	// embedding in markdown.
	fenced bool
}

// Option configures the serializer.
type Option func(*Serializer)

// WithDirection sets the flowchart orientation.
func WithDirection(d Direction) Option {
	return func(s *Serializer) {
		if d == DirectionTopDown || d == DirectionLeftRight {
			s.direction = d
		}
	}
}

// WithTheme sets the class styling applied to the diagram.
func WithTheme(t *Theme) Option {
	return func(s *Serializer) {
		if t != nil {
			s.theme = t
		}
	}
}

// WithMarkdownFence wraps the diagram in a mermaid code fence.
func WithMarkdownFence(fenced bool) Option {
	return func(s *Serializer) { s.fenced = fenced }
}

// WithAssetLinks attaches click-through hrefs to node ids, typically
// pointing at exported greeting assets. Ids that never declare a node
// in the diagram are ignored.
func WithAssetLinks(links map[string]string) Option {
	return func(s *Serializer) { s.links = links }
}

// NewSerializer creates a serializer with the default theme and
// top-down orientation.
func NewSerializer(opts ...Option) *Serializer {
	s := &Serializer{
		direction: DirectionTopDown,
		theme:     DefaultTheme(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialize renders the fragments as one diagram string.
func (s *Serializer) Serialize(fragments []flow.Fragment) string {
	var sb strings.Builder
	s.Write(&sb, fragments)
	return sb.String()
}

// Write streams the diagram to a writer. Writes to in-memory builders
// cannot fail, and file-level failures surface from the writer's own
// Close, so errors are not threaded through each line.
func (s *Serializer) Write(w io.Writer, fragments []flow.Fragment) {
	if s.fenced {
		fmt.Fprintln(w, "```mermaid")
	}
	fmt.Fprintf(w, "flowchart %s\n", s.direction)

	st := &serializeState{
		declared: make(map[string]struct{}),
		classes:  make(map[string][]string),
	}
	for _, frag := range fragments {
		if frag.Title != "" {
			fmt.Fprintf(w, "%%%% %s\n", flow.SanitizeLabel(frag.Title))
		}
		for _, stmt := range frag.Statements {
			s.writeStatement(w, st, stmt)
		}
	}

	s.writeLinks(w, st)
	s.theme.write(w, st.classes)
	if s.fenced {
		fmt.Fprintln(w, "```")
	}
}

// serializeState tracks first-occurrence declaration and class
// membership across fragments.
type serializeState struct {
	declared map[string]struct{}
	classes  map[string][]string
	depth    int
}

func (s *Serializer) writeStatement(w io.Writer, st *serializeState, stmt flow.Statement) {
	switch v := stmt.(type) {
	case flow.NodeStmt:
		fmt.Fprintf(w, "%s%s\n", indent(st.depth+1), s.renderNode(st, v.Node))

	case flow.EdgeStmt:
		connector := "-->"
		if v.Style == flow.EdgeDotted {
			connector = "-.->"
		}
		if v.Label != "" {
			connector = fmt.Sprintf("%s|%s|", connector, flow.SanitizeLabel(v.Label))
		}
		fmt.Fprintf(w, "%s%s %s %s\n",
			indent(st.depth+1), s.renderNode(st, v.From), connector, s.renderNode(st, v.To))

	case flow.SubgraphStart:
		fmt.Fprintf(w, "%ssubgraph %s [%s]\n", indent(st.depth+1), v.ID, flow.SanitizeLabel(v.Title))
		st.depth++

	case flow.SubgraphEnd:
		if st.depth > 0 {
			st.depth--
		}
		fmt.Fprintf(w, "%send\n", indent(st.depth+1))
	}
}

// renderNode emits the full shape declaration for a node's first
// occurrence and the bare id afterwards. Empty-label nodes are pure
// references into already-declared structure (typically subgraph ids).
func (s *Serializer) renderNode(st *serializeState, n flow.Node) string {
	if n.Label == "" {
		return n.ID
	}
	if _, done := st.declared[n.ID]; done {
		return n.ID
	}
	st.declared[n.ID] = struct{}{}
	if n.Class != "" {
		st.classes[n.Class] = append(st.classes[n.Class], n.ID)
	}

	label := flow.SanitizeLabel(n.Label)
	lb, rb := shapeBrackets(n.Shape)
	return n.ID + lb + "\"" + label + "\"" + rb
}

// writeLinks emits click annotations for declared nodes, sorted by id
// so the document is byte-stable across runs.
func (s *Serializer) writeLinks(w io.Writer, st *serializeState) {
	if len(s.links) == 0 {
		return
	}
	ids := make([]string, 0, len(s.links))
	for id := range s.links {
		if _, ok := st.declared[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "    click %s \"%s\" _blank\n", id, s.links[id])
	}
}

// shapeBrackets maps a node shape to its Mermaid bracket pair.
func shapeBrackets(shape flow.Shape) (string, string) {
	switch shape {
	case flow.ShapeRound:
		return "(", ")"
	case flow.ShapeDecision:
		return "{", "}"
	case flow.ShapeSubroutine:
		return "[[", "]]"
	case flow.ShapeTerminal:
		return "([", "])"
	case flow.ShapeSchedule:
		return "[/", "\\]"
	default:
		return "[", "]"
	}
}

func indent(depth int) string {
	return strings.Repeat("    ", depth)
}
