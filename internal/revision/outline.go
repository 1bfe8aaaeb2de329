// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package revision

// Row is one line of a tree outline.
type Row struct {
	Path  Path
	Node  *Node
	Depth int

	// Prefix is the box-drawing indent for the row ("│  ├─ ").
	Prefix string

	// OnActive marks nodes on the active path of their root; Current marks
	// the end of that path.
	OnActive bool
	Current  bool
}

// Outline flattens every root into display rows, parents before children.
func (s *State) Outline() []Row {
	if s == nil {
		return nil
	}
	var rows []Row
	for i, root := range s.History {
		active := root.Active
		if len(active) == 0 {
			active = Path{i}
		}
		var visit func(p Path, n *Node, indent string, last bool)
		visit = func(p Path, n *Node, indent string, last bool) {
			prefix := ""
			childIndent := ""
			if len(p) > 1 {
				if last {
					prefix = indent + "└─ "
					childIndent = indent + "   "
				} else {
					prefix = indent + "├─ "
					childIndent = indent + "│  "
				}
			}
			rows = append(rows, Row{
				Path:     p,
				Node:     n,
				Depth:    len(p) - 1,
				Prefix:   prefix,
				OnActive: active.HasPrefix(p),
				Current:  active.Equal(p),
			})
			for j, child := range n.Swipes {
				visit(p.Child(j), child, childIndent, j == len(n.Swipes)-1)
			}
		}
		visit(Path{i}, root, "", true)
	}
	return rows
}
