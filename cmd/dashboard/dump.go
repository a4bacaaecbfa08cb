package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/tachikoma-agent/dashboard/src/config"
	"github.com/tachikoma-agent/dashboard/src/model"
	"github.com/tachikoma-agent/dashboard/src/queries"
)

// sessionRecord is the JSON dump shape for a single session. Derived
// fields like status and duration are resolved at dump time so consumers
// don't need to re-implement the liveness rules.
type sessionRecord struct {
	ID        string              `json:"id"`
	ParentID  *string             `json:"parent_id,omitempty"`
	Title     string              `json:"title"`
	Directory string              `json:"directory"`
	Status    model.SessionStatus `json:"status"`
	Duration  int64               `json:"duration_seconds"`
	Created   int64               `json:"time_created"`
	Updated   int64               `json:"time_updated"`
	Subagent  bool                `json:"subagent"`
}

type dumpOutput struct {
	Sessions   []sessionRecord    `json:"sessions"`
	ModelUsage []model.ModelUsage `json:"model_usage"`
}

// dumpJSON writes the current sessions and model usage to stdout once
// and exits, for scripting against the store without the refresh loop.
func dumpJSON(ctx context.Context, svc *queries.Service, cfg config.Config) error {
	sessions, err := svc.Sessions(ctx, cfg.Cwd)
	if err != nil {
		return err
	}
	modelUsage, err := svc.AllModelUsage(ctx)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	out := dumpOutput{
		Sessions:   make([]sessionRecord, 0, len(sessions)),
		ModelUsage: modelUsage,
	}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, sessionRecord{
			ID:        s.ID,
			ParentID:  s.ParentID,
			Title:     s.Title,
			Directory: s.Directory,
			Status:    s.Status(now),
			Duration:  s.Duration(now),
			Created:   s.CreatedSeconds(),
			Updated:   s.UpdatedSeconds(),
			Subagent:  s.IsSubagent(),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
