// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package flow builds a styleable directed-graph description of a
// tenant's voice-routing configuration.
//
// The package walks a possibly cyclic network of auto attendants and
// call queues that reference each other by opaque identifiers, and
// synthesizes a structured intermediate representation (typed nodes,
// edges, subgraphs) that the mermaid package serializes. Traversal is a
// worklist fixpoint loop: nested applications discovered during
// expansion are enqueued and expanded at most once, which makes
// arbitrarily deep or cyclic nesting safe.
package flow

import (
	"strconv"
	"strings"

	"github.com/voicegraph/callflow/internal/export"
)

// Shape selects the diagram shape a node is rendered with.
type Shape int

const (
	// ShapeRect is a plain process box.
	ShapeRect Shape = iota

	// ShapeRound is a rounded box, used for greetings and prompts.
	ShapeRound

	// ShapeDecision is a branching diamond.
	ShapeDecision

	// ShapeSubroutine is the double-walled entry box of a voice app.
	ShapeSubroutine

	// ShapeTerminal is a stadium, used for end states (disconnect,
	// connected, voicemail deposit).
	ShapeTerminal

	// ShapeSchedule is a trapezoid, used for holiday schedule display.
	ShapeSchedule
)

// Node is one declared diagram node. Node identity is its ID; the same
// ID may legitimately be declared by several statements (e.g. a shared
// transfer target) and is deduplicated at serialization time, not
// during construction.
type Node struct {
	ID    string
	Label string
	Shape Shape

	// Class is an optional style class name applied by the theme.
	Class string
}

// EdgeStyle selects the connector rendering.
type EdgeStyle int

const (
	// EdgeSolid is the normal directed arrow.
	EdgeSolid EdgeStyle = iota

	// EdgeDotted marks informational, non-call-path connections.
	EdgeDotted
)

// Statement is one ordered element of a fragment. The concrete types
// are NodeStmt, EdgeStmt, SubgraphStart and SubgraphEnd; serializers
// switch exhaustively over them.
type Statement interface {
	isStatement()
}

// NodeStmt declares a node with no connection, used for informational
// blocks such as queue settings.
type NodeStmt struct {
	Node Node
}

// EdgeStmt declares a directed edge. From and To carry full node
// declarations so a fragment stays self-contained.
type EdgeStmt struct {
	From  Node
	To    Node
	Label string
	Style EdgeStyle
}

// SubgraphStart opens a titled cluster. Statements until the matching
// SubgraphEnd render inside it.
type SubgraphStart struct {
	ID    string
	Title string
}

// SubgraphEnd closes the innermost open cluster.
type SubgraphEnd struct{}

func (NodeStmt) isStatement()      {}
func (EdgeStmt) isStatement()      {}
func (SubgraphStart) isStatement() {}
func (SubgraphEnd) isStatement()   {}

// Fragment is the ordered statement sequence of one call-handling
// stage. Fragments are concatenated in emission order and never
// reordered.
type Fragment struct {
	// Title names the stage for debugging and serializer comments.
	Title string

	Statements []Statement
}

// Add appends statements to the fragment.
func (f *Fragment) Add(stmts ...Statement) {
	f.Statements = append(f.Statements, stmts...)
}

// Edge appends a solid edge statement.
func (f *Fragment) Edge(from, to Node) {
	f.Add(EdgeStmt{From: from, To: to})
}

// LabeledEdge appends a solid edge with a connector label.
func (f *Fragment) LabeledEdge(from, to Node, label string) {
	f.Add(EdgeStmt{From: from, To: to, Label: label})
}

// Accumulator is the shared mutable graph state of one traversal. It
// is created empty at traversal start, threaded explicitly through
// every builder call, read once for serialization, then discarded.
//
// Not safe for concurrent use: the traversal driver owns it on a
// single logical thread.
type Accumulator struct {
	fragments []Fragment

	nodeIDs   map[string]struct{}
	subgraphs map[string]struct{}

	// pending is the append-only worklist of nested app identities, in
	// insertion order, deduplicated on insert.
	pending    []string
	pendingSet map[string]struct{}

	visited map[string]struct{}

	// assets collects export task keys in emission order; the driver
	// exposes them after the build.
	assets []AssetRef
}

// AssetRef links an emitted node id to its pending export task.
type AssetRef struct {
	NodeID string
	Task   export.Task
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		nodeIDs:    make(map[string]struct{}),
		subgraphs:  make(map[string]struct{}),
		pendingSet: make(map[string]struct{}),
		visited:    make(map[string]struct{}),
	}
}

// AddFragment appends a fragment and records its node and subgraph ids.
func (a *Accumulator) AddFragment(f Fragment) {
	for _, stmt := range f.Statements {
		switch s := stmt.(type) {
		case NodeStmt:
			a.nodeIDs[s.Node.ID] = struct{}{}
		case EdgeStmt:
			a.nodeIDs[s.From.ID] = struct{}{}
			a.nodeIDs[s.To.ID] = struct{}{}
		case SubgraphStart:
			a.subgraphs[s.ID] = struct{}{}
		}
	}
	a.fragments = append(a.fragments, f)
}

// Fragments returns the accumulated fragments in emission order.
func (a *Accumulator) Fragments() []Fragment {
	return a.fragments
}

// HasNode reports whether a node id has been emitted.
func (a *Accumulator) HasNode(id string) bool {
	_, ok := a.nodeIDs[id]
	return ok
}

// NodeCount returns the number of distinct node ids emitted so far.
func (a *Accumulator) NodeCount() int {
	return len(a.nodeIDs)
}

// Enqueue registers a nested app identity for later expansion. The
// insert is idempotent; enqueueing an already-visited identity is a
// harmless no-op on dequeue.
func (a *Accumulator) Enqueue(appID string) {
	if appID == "" {
		return
	}
	if _, seen := a.pendingSet[appID]; seen {
		return
	}
	a.pendingSet[appID] = struct{}{}
	a.pending = append(a.pending, appID)
}

// NextPending pops the oldest unvisited pending identity. Returns false
// when the worklist has reached a fixpoint.
func (a *Accumulator) NextPending() (string, bool) {
	for len(a.pending) > 0 {
		id := a.pending[0]
		a.pending = a.pending[1:]
		if _, done := a.visited[id]; !done {
			return id, true
		}
	}
	return "", false
}

// MarkVisited records an app as expanded. Returns false when the app
// was already visited, in which case the caller must not expand it
// again.
func (a *Accumulator) MarkVisited(appID string) bool {
	if _, done := a.visited[appID]; done {
		return false
	}
	a.visited[appID] = struct{}{}
	return true
}

// VisitedCount returns the number of expanded apps.
func (a *Accumulator) VisitedCount() int {
	return len(a.visited)
}

// AddAsset records an export task produced during expansion.
func (a *Accumulator) AddAsset(nodeID string, task export.Task) {
	a.assets = append(a.assets, AssetRef{NodeID: nodeID, Task: task})
}

// Assets returns the collected export tasks in emission order.
func (a *Accumulator) Assets() []AssetRef {
	return a.assets
}

// NodeID derives a deterministic node identifier from a stage keyword
// and an app identity. IDs are pure functions of their inputs so that
// re-running the traversal on the same configuration yields identical
// output.
func NodeID(stage, appID string) string {
	return stage + "-" + sanitizeID(appID)
}

// IndexedNodeID derives a node identifier carrying a per-stage counter,
// for fan-out nodes (menu options, agents, holiday blocks).
func IndexedNodeID(stage, appID string, index int) string {
	return NodeID(stage, appID) + "-" + strconv.Itoa(index)
}

// sanitizeID strips characters that are structurally significant in
// diagram syntax from identifiers.
func sanitizeID(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// SanitizeLabel removes characters that would terminate a diagram
// statement early. Semicolons become commas; quotes become ticks.
func SanitizeLabel(s string) string {
	replacer := strings.NewReplacer(
		";", ",",
		"\"", "'",
		"\n", " ",
		"\r", "",
	)
	return replacer.Replace(s)
}
