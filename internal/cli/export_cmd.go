// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - The "export" command.
package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/continuum/internal/export"
	"github.com/jeranaias/continuum/internal/revision"
)

// HandleExport writes a chat and its revision trees to a file, or to
// stdout with --stdout.
func HandleExport(a *App, args Args) error {
	chat, err := a.LoadChat(args.Params.Positional(0))
	if err != nil {
		return err
	}
	if args.JSON && args.Params.BoolFlag("stdout") {
		return &ValidationError{
			Field:   "--stdout",
			Reason:  "cannot be combined with --json",
			Example: "continuum export 1 --format json --stdout",
		}
	}

	// Messages with alternates get a tree even if none was saved yet.
	for _, msg := range chat.Messages {
		if msg.Revisions != nil || len(msg.Swipes) > 1 {
			revision.Hydrate(msg)
		}
	}

	opts := export.DefaultOptions()
	opts.OutputDir = args.Params.FlagOrDefault("out", a.Config.ExportDir())
	opts.Theme = args.Params.FlagOrDefault("theme", a.Config.Export.Theme)
	opts.IncludeTrees = !args.Params.BoolFlag("no-trees")
	opts.Open = args.Params.BoolFlag("open")
	opts.Compress = args.Params.BoolFlag("gzip")

	format := args.Params.FlagOrDefault("format", a.Config.Export.Format)
	exp, err := export.ForFormat(format, opts)
	if err != nil {
		return &ValidationError{Field: "format", Value: format, Reason: err.Error(), Example: "continuum export 1 --format html"}
	}

	if args.Params.BoolFlag("stdout") {
		content, err := exp.Export(chat)
		if err != nil {
			return err
		}
		if opts.Compress {
			if content, err = export.Gzip(content, "chat"+exp.FileExtension()); err != nil {
				return err
			}
		}
		_, err = a.Out.Write(content)
		return err
	}

	path, err := export.ExportToFile(chat, exp, opts)
	var openErr *export.OpenError
	if errors.As(err, &openErr) {
		StderrPrint("Warning: %v\n", openErr)
	} else if err != nil {
		return err
	}
	a.Logger.Printf("EXPORT | chat=%s format=%s path=%s", chat.ID, format, path)

	if args.JSON {
		return NewJSONResponse("export", ExportData{
			ChatID:   chat.ID,
			Format:   format,
			Path:     path,
			MimeType: exp.MimeType(),
		}).Write(a.Out)
	}
	fmt.Fprintf(a.Out, "%s exported %s to %s\n", RenderStatus("ok"), chat.Character, path)
	return nil
}
