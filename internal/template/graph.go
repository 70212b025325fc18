// Package template contains the normalized node/slot document model that
// published template versions reference, plus the theme model the style
// cascade draws from.
package template

import (
	"encoding/json"
	"fmt"
)

// Node types understood by the renderer. Unknown types are preserved in the
// graph and render as empty.
const (
	NodeText        = "text"
	NodeContainer   = "container"
	NodeColumns     = "columns"
	NodeTable       = "table"
	NodeConditional = "conditional"
	NodeLoop        = "loop"
	NodePageBreak   = "pageBreak"
)

// Style is a flat map of style properties (fontFamily, fontSize, ...).
type Style map[string]interface{}

// Clone returns a shallow copy of the style map.
func (s Style) Clone() Style {
	out := make(Style, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Graph is the normalized node/slot representation of a document layout.
// It is immutable once associated with a published version.
type Graph struct {
	RootID         string          `json:"root"`
	Nodes          map[string]Node `json:"nodes"`
	Slots          map[string]Slot `json:"slots"`
	DocumentStyles Style           `json:"documentStyles,omitempty"`
}

// Node is one layout element. SlotIDs are ordered; Props carries
// type-specific configuration decoded by the renderer.
type Node struct {
	Type        string          `json:"type"`
	SlotIDs     []string        `json:"slots,omitempty"`
	Styles      Style           `json:"styles,omitempty"`
	StylePreset string          `json:"stylePreset,omitempty"`
	Props       json.RawMessage `json:"props,omitempty"`
}

// Slot holds an ordered list of child nodes under its owning node.
type Slot struct {
	Name         string   `json:"name"`
	NodeID       string   `json:"nodeId"`
	ChildNodeIDs []string `json:"children,omitempty"`
}

// ParseGraph decodes and validates a graph from its persisted JSON form.
func ParseGraph(raw []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("failed to decode template graph: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate enforces the structural invariants: the root exists, every slot
// belongs to an existing node, every child resolves, and no node hangs under
// two different slots (the graph is a tree, not a general DAG).
func (g *Graph) Validate() error {
	if g.RootID == "" {
		return fmt.Errorf("template graph has no root node")
	}
	if _, ok := g.Nodes[g.RootID]; !ok {
		return fmt.Errorf("root node %q not found in graph", g.RootID)
	}

	parents := make(map[string]string, len(g.Nodes))
	for slotID, slot := range g.Slots {
		if _, ok := g.Nodes[slot.NodeID]; !ok {
			return fmt.Errorf("slot %q belongs to unknown node %q", slotID, slot.NodeID)
		}
		for _, childID := range slot.ChildNodeIDs {
			if _, ok := g.Nodes[childID]; !ok {
				return fmt.Errorf("slot %q references unknown node %q", slotID, childID)
			}
			if prev, claimed := parents[childID]; claimed {
				return fmt.Errorf("node %q appears under both slot %q and slot %q", childID, prev, slotID)
			}
			parents[childID] = slotID
		}
	}

	if parent, ok := parents[g.RootID]; ok {
		return fmt.Errorf("root node %q must not be a child of slot %q", g.RootID, parent)
	}

	// Unique parents plus an unparented root make a cycle through the root
	// impossible, but a detached cluster of nodes can still form one.
	if err := g.checkCycles(); err != nil {
		return err
	}

	return nil
}

func (g *Graph) checkCycles() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.Nodes))

	var visit func(nodeID string) error
	visit = func(nodeID string) error {
		switch state[nodeID] {
		case visiting:
			return fmt.Errorf("template graph contains a cycle through node %q", nodeID)
		case done:
			return nil
		}
		state[nodeID] = visiting
		for _, slotID := range g.Nodes[nodeID].SlotIDs {
			slot, ok := g.Slots[slotID]
			if !ok {
				continue // missing slots render as empty
			}
			for _, childID := range slot.ChildNodeIDs {
				if err := visit(childID); err != nil {
					return err
				}
			}
		}
		state[nodeID] = done
		return nil
	}

	for nodeID := range g.Nodes {
		if err := visit(nodeID); err != nil {
			return err
		}
	}
	return nil
}
