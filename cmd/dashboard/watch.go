package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tachikoma-agent/dashboard/src/config"
	"github.com/tachikoma-agent/dashboard/src/model"
	"github.com/tachikoma-agent/dashboard/src/queries"
	"github.com/tachikoma-agent/dashboard/src/refresh"
)

// watch runs the refresh loop until the context is cancelled, printing
// the session forest whenever a tick observes a change.
func watch(ctx context.Context, svc *queries.Service, cfg config.Config, selectID string, logger *slog.Logger) error {
	ctrl := refresh.NewController(svc, cfg, printSnapshot, logger)
	ctrl.Start(ctx)
	defer ctrl.Stop()

	if selectID != "" {
		ctrl.Select(selectID)
	}

	<-ctx.Done()
	return nil
}

func printSnapshot(snap refresh.Snapshot) {
	fmt.Printf("\n=== %s ===\n", time.Now().Format(time.RFC3339))
	if !snap.StoreAvailable {
		fmt.Println("(no database found, waiting)")
		return
	}
	if len(snap.Tree) == 0 {
		fmt.Println("(no sessions)")
		return
	}

	now := time.Now().Unix()
	model.WalkForest(snap.Tree, func(node *model.SessionTree, depth int) bool {
		marker := " "
		if node.Session.ID == snap.SelectedID {
			marker = ">"
		}
		title := node.Session.Title
		if title == "" {
			title = node.Session.ID
		}
		fmt.Printf("%s %s%s [%s] %s\n",
			marker,
			strings.Repeat("  ", depth),
			title,
			node.Session.Status(now),
			formatDuration(node.Session.Duration(now)))
		return true
	})

	if snap.SelectedStats != nil {
		fmt.Printf("selected: %d messages, %d tool calls\n",
			snap.SelectedStats.MessageCount, snap.SelectedStats.ToolCallCount)
	}
	for _, mu := range snap.ModelUsage {
		fmt.Printf("model %s: %d requests, %d tokens\n",
			mu.ModelKey(), mu.RequestCount, mu.TotalTokens)
	}
}

func formatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
