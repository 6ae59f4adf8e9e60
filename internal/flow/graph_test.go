// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectEdges flattens every edge statement across fragments, for
// builder assertions.
func collectEdges(fragments []Fragment) []EdgeStmt {
	var edges []EdgeStmt
	for _, f := range fragments {
		for _, stmt := range f.Statements {
			if e, ok := stmt.(EdgeStmt); ok {
				edges = append(edges, e)
			}
		}
	}
	return edges
}

// findEdge returns the first edge between two node ids.
func findEdge(fragments []Fragment, fromID, toID string) (EdgeStmt, bool) {
	for _, e := range collectEdges(fragments) {
		if e.From.ID == fromID && e.To.ID == toID {
			return e, true
		}
	}
	return EdgeStmt{}, false
}

// findNode returns the first declared (labeled) node with the given id.
func findNode(fragments []Fragment, id string) (Node, bool) {
	for _, f := range fragments {
		for _, stmt := range f.Statements {
			switch s := stmt.(type) {
			case NodeStmt:
				if s.Node.ID == id {
					return s.Node, true
				}
			case EdgeStmt:
				if s.From.ID == id && s.From.Label != "" {
					return s.From, true
				}
				if s.To.ID == id && s.To.Label != "" {
					return s.To, true
				}
			}
		}
	}
	return Node{}, false
}

func TestNodeID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, NodeID("entry", "abc-123"), NodeID("entry", "abc-123"))
	})

	t.Run("sanitizes structural characters", func(t *testing.T) {
		assert.Equal(t, "entry-a_b_c", NodeID("entry", "a b/c"))
	})

	t.Run("distinct stages distinct ids", func(t *testing.T) {
		assert.NotEqual(t, NodeID("defaultGreeting", "x"), NodeID("afterHoursGreeting", "x"))
	})

	t.Run("indexed", func(t *testing.T) {
		assert.Equal(t, "agent-q1-0", IndexedNodeID("agent", "q1", 0))
		assert.Equal(t, "agent-q1-12", IndexedNodeID("agent", "q1", 12))
	})
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "a, b 'quoted' c", SanitizeLabel("a; b \"quoted\"\nc"))
}

func TestAccumulatorWorklist(t *testing.T) {
	acc := NewAccumulator()

	t.Run("enqueue is idempotent", func(t *testing.T) {
		acc.Enqueue("app-a")
		acc.Enqueue("app-b")
		acc.Enqueue("app-a")

		id, ok := acc.NextPending()
		require.True(t, ok)
		assert.Equal(t, "app-a", id)
		require.True(t, acc.MarkVisited(id))

		id, ok = acc.NextPending()
		require.True(t, ok)
		assert.Equal(t, "app-b", id)
		require.True(t, acc.MarkVisited(id))

		_, ok = acc.NextPending()
		assert.False(t, ok, "duplicate enqueue must not reappear")
	})

	t.Run("visited apps are not expanded twice", func(t *testing.T) {
		acc.Enqueue("app-c")
		id, ok := acc.NextPending()
		require.True(t, ok)
		require.True(t, acc.MarkVisited(id))
		assert.False(t, acc.MarkVisited(id))
	})

	t.Run("re-enqueue of visited app drains silently", func(t *testing.T) {
		// The insert dedup set still holds app-a, but even a fresh id
		// that was marked visited out of band must not pop.
		acc.Enqueue("app-d")
		require.True(t, acc.MarkVisited("app-d"))
		_, ok := acc.NextPending()
		assert.False(t, ok)
	})
}

func TestAccumulatorNodeTracking(t *testing.T) {
	acc := NewAccumulator()

	var frag Fragment
	frag.Edge(Node{ID: "n1", Label: "one"}, Node{ID: "n2", Label: "two"})
	frag.Add(NodeStmt{Node: Node{ID: "n3", Label: "three"}})
	frag.Add(SubgraphStart{ID: "sg1", Title: "cluster"}, SubgraphEnd{})
	acc.AddFragment(frag)

	assert.True(t, acc.HasNode("n1"))
	assert.True(t, acc.HasNode("n2"))
	assert.True(t, acc.HasNode("n3"))
	assert.False(t, acc.HasNode("sg1"), "subgraphs are not nodes")
	assert.Equal(t, 3, acc.NodeCount())

	// Re-adding the same ids must not inflate the count.
	acc.AddFragment(frag)
	assert.Equal(t, 3, acc.NodeCount())
	require.Len(t, acc.Fragments(), 2)
}
