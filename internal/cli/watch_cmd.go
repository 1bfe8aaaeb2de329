// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// watch_cmd.go - The "watch" command.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/continuum/internal/watch"
)

// HandleWatch follows a chat file and reconciles every external rewrite
// into the live chat until ctx is cancelled. With --once it returns after
// the first change.
func HandleWatch(ctx context.Context, a *App, args Args) error {
	chat, err := a.LoadChat(args.Params.Positional(0))
	if err != nil {
		return err
	}
	path := a.Store.Path(chat.ID)

	cfg := watch.DefaultConfig()
	cfg.Debounce = a.Config.WatchDebounce()
	cfg.RatePerSecond = a.Config.Watch.ReloadsPerSecond
	cfg.Burst = a.Config.Watch.Burst

	w, err := watch.New(cfg)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		return err
	}
	w.Start(ctx)

	if !args.JSON {
		fmt.Fprintf(a.Out, "%s watching %s %s\n", InfoStyle.Render("●"), path, DimStyle.Render("(Ctrl+C to stop)"))
	}

	once := args.Params.BoolFlag("once")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors():
			if ok {
				a.Logger.Printf("WATCH_ERROR | path=%s error=%v", path, err)
			}
		case change, ok := <-w.Changes():
			if !ok {
				return nil
			}
			if err := a.reconcileChange(args, change); err != nil {
				return err
			}
			if once {
				return nil
			}
		}
	}
}

// reconcileChange loads the rewritten file and applies it to the live chat.
func (a *App) reconcileChange(args Args, change watch.Change) error {
	if change.Removed {
		a.Logger.Printf("WATCH_REMOVED | path=%s", change.Path)
		if !args.JSON {
			fmt.Fprintf(a.Out, "%s %s removed\n", WarningStyle.Render("!"), change.Path)
		}
		return nil
	}

	loaded, err := a.Store.LoadFile(change.Path)
	if err != nil {
		// Half-written or foreign content; wait for the next write.
		a.Logger.Printf("WATCH_LOAD_FAILED | path=%s error=%v", change.Path, err)
		return nil
	}

	res := watch.Apply(a.Host, loaded)
	muts := a.Mutations()
	if len(muts) > 0 {
		// The reconciler changed trees; write them back. The rewrite comes
		// back as a change that applies cleanly.
		if err := a.Host.Flush(); err != nil {
			return err
		}
	}
	a.Logger.Printf("WATCH_APPLIED | path=%s changed=%t mutations=%d", change.Path, res.Changed(), len(muts))

	if args.JSON {
		return NewJSONResponse("watch", map[string]interface{}{
			"path":      change.Path,
			"at":        change.At.UTC().Format(time.RFC3339),
			"result":    res,
			"mutations": mutationData(muts),
		}).Write(a.Out)
	}
	if !res.Changed() && len(muts) == 0 {
		return nil
	}
	fmt.Fprintf(a.Out, "%s %s  %s\n", RenderStatus("changed"), change.At.Local().Format("15:04:05"), describeResult(res))
	for _, m := range muts {
		fmt.Fprintf(a.Out, "  #%d %s %s %s\n", m.MessageIndex, DimStyle.Render(string(m.Op)), KindStyle(m.Kind).Render(m.Kind.String()), m.Path)
	}
	return nil
}

func describeResult(r watch.Result) string {
	var parts []string
	if r.Replaced {
		parts = append(parts, "chat replaced")
	}
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, what))
		}
	}
	add(r.Appended, "appended")
	add(r.Truncated, "removed")
	add(r.Adopted, "trees adopted")
	add(r.Extended, "extended")
	add(r.Edited, "edited")
	add(r.Swiped, "swiped")
	if len(parts) == 0 {
		return "no message changes"
	}
	return strings.Join(parts, ", ")
}
