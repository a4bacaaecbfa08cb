package usage

import (
	"slices"
	"strings"

	"github.com/tachikoma-agent/dashboard/src/model"
	"github.com/tachikoma-agent/dashboard/src/storage"
)

// SkillsForSession parses skill tool-call parts into per-skill load metrics.
// Parts are expected in load order; output follows first-load order.
func SkillsForSession(sessionID string, parts []storage.PartRow) []model.Skill {
	type record struct {
		count int64
		first int64
		last  int64
	}

	records := make(map[string]*record)
	var order []string

	for _, part := range parts {
		payload, err := model.ParsePartPayload(part.Data)
		if err != nil {
			continue
		}
		name := payload.SkillName()
		if name == "" {
			continue
		}

		r, ok := records[name]
		if !ok {
			r = &record{first: part.TimeCreated}
			records[name] = r
			order = append(order, name)
		}
		r.count++
		r.last = part.TimeCreated
	}

	skills := make([]model.Skill, 0, len(order))
	for _, name := range order {
		r := records[name]
		skills = append(skills, model.Skill{
			Name:            name,
			SessionID:       sessionID,
			TimeLoaded:      r.first,
			InvocationCount: r.count,
			LastUsed:        r.last,
		})
	}
	return skills
}

// SkillStats aggregates one skill's invocations across sessions.
type SkillStats struct {
	Name             string   `json:"name"`
	TotalInvocations int64    `json:"total_invocations"`
	TotalDurationMS  int64    `json:"total_duration_ms"`
	SessionIDs       []string `json:"sessions"`
	FirstUsed        int64    `json:"first_used"`
	LastUsed         int64    `json:"last_used"`
	SuccessCount     int64    `json:"success_count"`
	FailureCount     int64    `json:"failure_count"`
}

// SessionCount returns the number of distinct sessions that used the skill.
func (s *SkillStats) SessionCount() int {
	return len(s.SessionIDs)
}

// AvgDurationMS returns the mean invocation duration.
func (s *SkillStats) AvgDurationMS() float64 {
	if s.TotalInvocations == 0 {
		return 0
	}
	return float64(s.TotalDurationMS) / float64(s.TotalInvocations)
}

// SuccessRate returns completed invocations as a fraction of the total.
func (s *SkillStats) SuccessRate() float64 {
	if s.TotalInvocations == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalInvocations)
}

// SkillUsage aggregates skill invocations across every session from tool
// parts. A part counts when its tool is the skill tool or carries "skill" in
// its tool name; the skill name is read from the invocation input, falling
// back to the tool name.
func SkillUsage(parts []storage.SessionPartRow) map[string]*SkillStats {
	stats := make(map[string]*SkillStats)

	for _, part := range parts {
		payload, err := model.ParsePartPayload(part.Data)
		if err != nil {
			continue
		}
		tool := payload.Tool
		if tool != "skill" && !strings.Contains(strings.ToLower(tool), "skill") {
			continue
		}

		name := payload.State.Input.Name
		if name == "" {
			name = payload.State.Input.SkillName
		}
		if name == "" {
			name = tool
		}

		s, ok := stats[name]
		if !ok {
			s = &SkillStats{
				Name:      name,
				FirstUsed: part.TimeCreated,
				LastUsed:  part.TimeCreated,
			}
			stats[name] = s
		}

		s.TotalInvocations++
		s.TotalDurationMS += payload.DurationMS()
		if part.TimeCreated < s.FirstUsed {
			s.FirstUsed = part.TimeCreated
		}
		if part.TimeCreated > s.LastUsed {
			s.LastUsed = part.TimeCreated
		}
		if !slices.Contains(s.SessionIDs, part.SessionID) {
			s.SessionIDs = append(s.SessionIDs, part.SessionID)
		}

		switch payload.State.Status {
		case "completed":
			s.SuccessCount++
		case "failed":
			s.FailureCount++
		}
	}

	return stats
}
