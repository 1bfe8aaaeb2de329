// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tree.go - Revision tree rendering.
package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/util"
)

// RenderTree draws every root of st with one line per node:
//
//	○ 0  orig   Hello there.
//	├─ ○ 0/0  cont   ␣How are you?
//	│  └─ ● 0/0/0  edit   ␣Fine.
//	└─   0/1  regen  ␣Goodbye.
//
// The current node gets a filled marker, nodes on the active path a hollow
// one. previewWidth bounds the fragment preview in terminal cells.
func RenderTree(st *revision.State, previewWidth int) string {
	if st == nil {
		return ""
	}
	if previewWidth <= 0 {
		previewWidth = 48
	}

	var sb strings.Builder
	for _, row := range st.Outline() {
		marker := "  "
		style := BranchStyle
		switch {
		case row.Current:
			marker = "● "
			style = CurrentNodeStyle
		case row.OnActive:
			marker = "○ "
			style = ActivePathStyle
		}

		label := row.Node.Kind.Label()
		preview := util.Preview(row.Node.Mes, previewWidth)
		if preview == "" {
			preview = DimStyle.Render("(empty)")
		} else {
			preview = style.Render(preview)
		}

		sb.WriteString(BranchStyle.Render(row.Prefix))
		sb.WriteString(style.Render(marker + row.Path.String()))
		sb.WriteString("  ")
		sb.WriteString(KindStyle(row.Node.Kind).Render(util.PadRight(label, 5)))
		sb.WriteString("  ")
		sb.WriteString(preview)
		if n := row.Node.ChildCount(); n > 1 {
			sb.WriteString(DimStyle.Render(fmt.Sprintf("  [%d branches]", n)))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// treeData converts st into its JSON form.
func treeData(chat *model.Chat, idx int, st *revision.State) TreeData {
	data := TreeData{
		ChatID:       chat.ID,
		MessageIndex: idx,
		RootIndex:    st.RootIndex(),
		ActivePath:   st.ActivePath().String(),
		Nodes:        []TreeNodeData{},
	}
	for _, row := range st.Outline() {
		data.Nodes = append(data.Nodes, TreeNodeData{
			Path:      row.Path.String(),
			Kind:      row.Node.Kind.String(),
			Mes:       row.Node.Mes,
			FullText:  st.TextForPathPreferCache(row.Path),
			CreatedAt: row.Node.CreatedAt,
			Children:  row.Node.ChildCount(),
			Active:    row.OnActive,
			Current:   row.Current,
		})
	}
	return data
}

// messageData summarizes one message for show output.
func messageData(idx int, msg *model.Message) MessageData {
	d := MessageData{
		Index:   idx,
		Name:    msg.Name,
		Role:    msg.Role().String(),
		Text:    msg.Mes,
		SwipeID: msg.SwipeID,
		Swipes:  len(msg.Swipes),
	}
	if msg.Revisions != nil {
		st := revision.Hydrate(msg)
		d.ActivePath = st.ActivePath().String()
		d.Revisions = st.NodeCount()
	}
	return d
}
