// Package usage turns the raw JSON message log into per-model token and
// error rollups. The log is heterogeneous: payload shapes vary by provider
// and role, so every field access is optional and a malformed row is skipped
// rather than failing the aggregate.
package usage

import (
	"sort"

	"github.com/tachikoma-agent/dashboard/src/model"
	"github.com/tachikoma-agent/dashboard/src/storage"
)

// Aggregate accumulates token, request and error counts per
// "{provider}/{model}" key. Both row sets are expected newest-first, so the
// first occurrence of any "last seen" style field wins. The error rows are
// scanned separately from the assistant rows because an error block can
// appear on messages the token scan never selects.
func Aggregate(assistant, errorRows []storage.MessageRow) map[string]*model.ModelUsage {
	stats := make(map[string]*model.ModelUsage)

	for _, row := range assistant {
		payload, err := model.ParseMessagePayload(row.Data)
		if err != nil {
			continue
		}

		u := ensure(stats, payload)
		if u.LastUsed == 0 {
			u.LastUsed = row.TimeCreated
		}
		addTokens(u, payload.Tokens)
		u.RequestCount++
	}

	for _, row := range errorRows {
		payload, err := model.ParseMessagePayload(row.Data)
		if err != nil || payload.Error == nil {
			continue
		}

		u := ensure(stats, payload)
		recordError(u, payload.Error, row.TimeCreated)
	}

	return stats
}

// AggregateSession rolls up the token usage of a single session with a
// per-model breakdown. Rows are expected newest-first; breakdown order is
// most-recently-used model first.
func AggregateSession(sessionID string, rows []storage.MessageRow) model.SessionTokens {
	tokens := model.SessionTokens{SessionID: sessionID}

	perModel := make(map[string]*model.ModelUsage)
	var order []string

	for _, row := range rows {
		payload, err := model.ParseMessagePayload(row.Data)
		if err != nil {
			continue
		}

		tokens.TotalInputTokens += payload.Tokens.Input
		tokens.TotalOutputTokens += payload.Tokens.Output
		tokens.RequestCount++

		key := payload.ModelKey()
		u, ok := perModel[key]
		if !ok {
			u = &model.ModelUsage{
				Provider: payload.Provider(),
				Model:    payload.Model(),
				LastUsed: row.TimeCreated,
			}
			perModel[key] = u
			order = append(order, key)
		}
		addTokens(u, payload.Tokens)
		u.RequestCount++
	}

	tokens.TotalTokens = tokens.TotalInputTokens + tokens.TotalOutputTokens

	for _, key := range order {
		tokens.Models = append(tokens.Models, *perModel[key])
	}
	return tokens
}

// Sorted flattens an aggregate map into a slice ordered by total tokens
// descending, with the model key as tiebreak so equal spends order
// deterministically.
func Sorted(stats map[string]*model.ModelUsage) []model.ModelUsage {
	out := make([]model.ModelUsage, 0, len(stats))
	for _, u := range stats {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalTokens != out[j].TotalTokens {
			return out[i].TotalTokens > out[j].TotalTokens
		}
		return out[i].ModelKey() < out[j].ModelKey()
	})
	return out
}

// RecentErrors maps error-bearing rows to ModelError values, newest first,
// up to limit entries. Pass limit <= 0 for no bound.
func RecentErrors(rows []storage.MessageRow, limit int) []model.ModelError {
	var out []model.ModelError
	for _, row := range rows {
		if limit > 0 && len(out) >= limit {
			break
		}

		payload, err := model.ParseMessagePayload(row.Data)
		if err != nil || payload.Error == nil {
			continue
		}

		name := payload.Error.Name
		if name == "" {
			name = "Unknown"
		}
		out = append(out, model.ModelError{
			SessionID:    row.SessionID,
			Provider:     payload.Provider(),
			Model:        payload.Model(),
			ErrorName:    name,
			ErrorMessage: payload.Error.Data.Message,
			Timestamp:    row.TimeCreated,
		})
	}
	return out
}

func ensure(stats map[string]*model.ModelUsage, payload *model.MessagePayload) *model.ModelUsage {
	key := payload.ModelKey()
	u, ok := stats[key]
	if !ok {
		u = &model.ModelUsage{
			Provider: payload.Provider(),
			Model:    payload.Model(),
		}
		stats[key] = u
	}
	return u
}

func addTokens(u *model.ModelUsage, t model.TokenCounts) {
	u.InputTokens += t.Input
	u.OutputTokens += t.Output
	u.TotalTokens = u.InputTokens + u.OutputTokens
}

func recordError(u *model.ModelUsage, e *model.PayloadError, timestamp int64) {
	u.ErrorCount++
	if u.LastError == nil {
		ts := timestamp
		u.LastError = &ts
		name := e.Name
		if name == "" {
			name = "Unknown"
		}
		u.LastErrorType = name
	}

	if isRateLimit(e) && u.LastRateLimit == nil {
		ts := timestamp
		u.LastRateLimit = &ts
		if retry := ExtractRetryAfter(e); retry != nil {
			u.RetryAfterMS = retry
		}
	}
}
