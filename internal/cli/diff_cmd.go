// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// diff_cmd.go - The "diff" command.
package cli

import (
	"fmt"

	"github.com/jeranaias/continuum/internal/diff"
	"github.com/jeranaias/continuum/internal/revision"
)

// HandleDiff compares the text of two revisions of one message. The second
// path defaults to the active one.
func HandleDiff(a *App, args Args) error {
	chat, idx, msg, err := a.target(args)
	if err != nil {
		return err
	}
	st := revision.Hydrate(msg)

	from, err := diffPath(st, args.Params.Positional(1), nil)
	if err != nil {
		return err
	}
	to, err := diffPath(st, args.Params.Positional(2), st.ActivePath())
	if err != nil {
		return err
	}

	unit := diff.UnitLine
	if args.Params.BoolFlag("words") {
		unit = diff.UnitWord
	}
	contextLines := args.Params.FlagIntOrDefault("context", 3)

	oldText := st.TextForPathPreferCache(from)
	newText := st.TextForPathPreferCache(to)
	d := diff.Compute(from.String(), to.String(), oldText, newText, unit)

	if args.JSON {
		data := DiffData{
			ChatID:       chat.ID,
			MessageIndex: idx,
			From:         d.From,
			To:           d.To,
			Unit:         unit.String(),
			Identical:    d.Identical(),
			SharedPrefix: diff.SharedPrefix(oldText, newText),
			Stats:        d.Stats,
			Summary:      d.Summary(),
			Inline:       d.Inline(nil),
		}
		if unit == diff.UnitLine {
			data.Unified = d.Unified(contextLines)
		}
		return NewJSONResponse("diff", data).Write(a.Out)
	}

	fmt.Fprintln(a.Out, SectionStyle.Render(fmt.Sprintf("#%d %s", idx, msg.Name))+
		DimStyle.Render(fmt.Sprintf("  %s -> %s  %s", d.From, d.To, d.Summary())))
	if d.Identical() {
		return nil
	}
	if unit == diff.UnitWord {
		fmt.Fprintln(a.Out, d.Inline(styledMarker))
		return nil
	}
	out := d.Unified(contextLines)
	if ColorsEnabled() {
		out = diff.Highlight(out, a.Config.UI.DiffStyle)
	}
	fmt.Fprint(a.Out, out)
	return nil
}

// diffPath parses raw, or returns fallback when raw is empty and fallback
// is set. The path must name an existing node.
func diffPath(st *revision.State, raw string, fallback revision.Path) (revision.Path, error) {
	if raw == "" {
		if fallback == nil {
			return nil, ErrMissingArgument("path", "continuum diff 1 0/0 0/1")
		}
		return fallback, nil
	}
	p, err := revision.ParsePath(raw)
	if err != nil {
		return nil, ErrInvalidFormat("path", raw, "slash separated indices such as 0/1/0")
	}
	if st.FindByPath(p) == nil {
		return nil, &ValidationError{Field: "path", Value: raw, Reason: "no revision at this path"}
	}
	return p, nil
}

// styledMarker colors word changes for the terminal, falling back to
// brackets when colors are off.
func styledMarker(t diff.TokenType, text string) string {
	if !ColorsEnabled() {
		return diff.BracketMarker(t, text)
	}
	switch t {
	case diff.TokenAdded:
		return DiffAddedStyle.Render(text)
	case diff.TokenRemoved:
		return DiffRemovedStyle.Render(text)
	default:
		return text
	}
}
