// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export_test

import (
	"fmt"
	"strings"

	"github.com/jeranaias/continuum/internal/export"
	"github.com/jeranaias/continuum/internal/model"
)

// ExampleForFormat renders a chat to Markdown without touching disk.
func ExampleForFormat() {
	chat := model.NewChat("Aria")
	chat.AddUserMessage("You", "Hi")
	chat.AddCharacterMessage("Hello, traveller.")

	opts := export.DefaultOptions()
	opts.IncludeMetadata = false

	exp, err := export.ForFormat("markdown", opts)
	if err != nil {
		fmt.Println(err)
		return
	}
	out, err := exp.Export(chat)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(exp.FileExtension(), exp.MimeType())
	fmt.Println(strings.SplitN(string(out), "\n", 2)[0])

	// Output:
	// .md text/markdown
	// # Chat with Aria
}
