// Package queries exposes typed read operations over the session store,
// combining the row store adapter, the entity mappers and the usage
// aggregator behind TTL caches sized for a polling refresh loop.
package queries

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/tachikoma-agent/dashboard/src/config"
	"github.com/tachikoma-agent/dashboard/src/model"
	"github.com/tachikoma-agent/dashboard/src/storage"
	"github.com/tachikoma-agent/dashboard/src/ttlcache"
	"github.com/tachikoma-agent/dashboard/src/usage"
)

const (
	cacheSize        = 100
	usageCacheKey    = "model-usage"
	lastMessageLimit = 200
)

// Service owns the caches and the store handle. A missing store file reads
// as empty data everywhere: the store belongs to the agent harness and may
// not exist yet, which is an empty state, not a failure.
type Service struct {
	store *storage.Store
	log   *slog.Logger

	sessions   *ttlcache.Cache[[]model.Session]
	modelUsage *ttlcache.Cache[[]model.ModelUsage]
}

// NewService creates a query service over store. Cache TTLs come from cfg;
// a zero TTL disables the respective cache.
func NewService(store *storage.Store, cfg config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		log:        logger,
		sessions:   ttlcache.New[[]model.Session](cfg.SessionCacheTTL, cacheSize),
		modelUsage: ttlcache.New[[]model.ModelUsage](cfg.UsageCacheTTL, cacheSize),
	}
}

// Store returns the underlying row store.
func (s *Service) Store() *storage.Store {
	return s.store
}

// Sessions returns all sessions ordered by recency, optionally filtered to
// one working directory. Results are cached per filter.
func (s *Service) Sessions(ctx context.Context, cwd string) ([]model.Session, error) {
	key := "sessions:" + cwd
	if cwd == "" {
		key = "sessions:all"
	}
	if cached, ok := s.sessions.Get(key); ok {
		return cached, nil
	}

	q := storage.Query{OrderBy: "-time_updated"}
	if cwd != "" {
		q.Where = map[string]any{"directory": cwd}
	}

	var result []model.Session
	if err := s.store.Select(ctx, &result, "session", q); err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return nil, nil
		}
		return nil, err
	}

	s.sessions.Set(key, result)
	return result, nil
}

// InvalidateSessions drops the cached session list for a filter, forcing the
// next read through to the store.
func (s *Service) InvalidateSessions(cwd string) {
	if cwd == "" {
		s.sessions.Invalidate("sessions:all")
		return
	}
	s.sessions.Invalidate("sessions:" + cwd)
}

// SessionByID returns one session, or nil when it does not exist.
func (s *Service) SessionByID(ctx context.Context, sessionID string) (*model.Session, error) {
	var result []model.Session
	err := s.store.Select(ctx, &result, "session", storage.Query{
		Where: map[string]any{"id": sessionID},
		Limit: 1,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return &result[0], nil
}

// SessionCount counts sessions, optionally filtered by directory.
func (s *Service) SessionCount(ctx context.Context, cwd string) (int64, error) {
	var where map[string]any
	if cwd != "" {
		where = map[string]any{"directory": cwd}
	}
	n, err := s.store.Count(ctx, "session", where)
	if errors.Is(err, storage.ErrNoStore) {
		return 0, nil
	}
	return n, err
}

// SessionStats computes the per-session rollup fresh on every call: total
// message count, assistant-message count as the tool-call proxy, and the
// last user message text, truncated for display.
func (s *Service) SessionStats(ctx context.Context, sessionID string) (model.SessionStats, error) {
	var stats model.SessionStats

	messages, err := s.store.Count(ctx, "message", map[string]any{"session_id": sessionID})
	if err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return stats, nil
		}
		return stats, err
	}
	stats.MessageCount = messages

	toolCalls, err := s.store.CountAssistantMessages(ctx, sessionID)
	if err != nil {
		return stats, err
	}
	stats.ToolCallCount = toolCalls

	part, err := s.store.LastUserMessagePart(ctx, sessionID)
	if err != nil {
		return stats, err
	}
	if part != nil {
		payload, err := model.ParsePartPayload(part.Data)
		if err != nil {
			s.log.Debug("skipping malformed part payload", "part_id", part.ID, "error", err)
		} else if payload.Text != "" {
			text := truncate(payload.Text, lastMessageLimit)
			stats.LastUserMessage = &text
		}
	}

	return stats, nil
}

// Todos returns the session's tasks in display order.
func (s *Service) Todos(ctx context.Context, sessionID string) ([]model.Todo, error) {
	var todos []model.Todo
	err := s.store.Select(ctx, &todos, "todo", storage.Query{
		Where:   map[string]any{"session_id": sessionID},
		OrderBy: "position",
	})
	if err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return nil, nil
		}
		return nil, err
	}
	return todos, nil
}

// SessionTokens rolls up one session's token usage with a per-model
// breakdown.
func (s *Service) SessionTokens(ctx context.Context, sessionID string) (model.SessionTokens, error) {
	rows, err := s.store.SessionAssistantMessages(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return model.SessionTokens{SessionID: sessionID}, nil
		}
		return model.SessionTokens{SessionID: sessionID}, err
	}
	return usage.AggregateSession(sessionID, rows), nil
}

// AllModelUsage aggregates token and error counts per model across the whole
// store, sorted by total tokens descending. This is the most expensive scan,
// so it gets the longer cache TTL.
func (s *Service) AllModelUsage(ctx context.Context) ([]model.ModelUsage, error) {
	if cached, ok := s.modelUsage.Get(usageCacheKey); ok {
		return cached, nil
	}

	assistant, err := s.store.AssistantMessages(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return nil, nil
		}
		return nil, err
	}
	errorRows, err := s.store.ErrorMessages(ctx)
	if err != nil {
		return nil, err
	}

	result := usage.Sorted(usage.Aggregate(assistant, errorRows))
	s.modelUsage.Set(usageCacheKey, result)
	return result, nil
}

// InvalidateModelUsage drops the cached global usage rollup.
func (s *Service) InvalidateModelUsage() {
	s.modelUsage.Invalidate(usageCacheKey)
}

// RecentErrors returns the newest failures across all models, up to limit.
func (s *Service) RecentErrors(ctx context.Context, limit int) ([]model.ModelError, error) {
	rows, err := s.store.RecentErrorMessages(ctx, limit)
	if err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return nil, nil
		}
		return nil, err
	}
	return usage.RecentErrors(rows, limit), nil
}

// ModelErrorHistory returns the newest failures of one model, up to limit.
func (s *Service) ModelErrorHistory(ctx context.Context, provider, modelID string, limit int) ([]model.ModelError, error) {
	rows, err := s.store.ModelErrorMessages(ctx, provider, modelID, limit)
	if err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return nil, nil
		}
		return nil, err
	}
	return usage.RecentErrors(rows, limit), nil
}

// SessionSkills returns the skills loaded in one session with invocation
// metrics.
func (s *Service) SessionSkills(ctx context.Context, sessionID string) ([]model.Skill, error) {
	parts, err := s.store.SkillParts(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return nil, nil
		}
		return nil, err
	}
	return usage.SkillsForSession(sessionID, parts), nil
}

// SkillUsage aggregates skill invocations across sessions, optionally
// scoped to one working directory.
func (s *Service) SkillUsage(ctx context.Context, cwd string) (map[string]*usage.SkillStats, error) {
	parts, err := s.store.ToolParts(ctx, cwd)
	if err != nil {
		if errors.Is(err, storage.ErrNoStore) {
			return nil, nil
		}
		return nil, err
	}
	return usage.SkillUsage(parts), nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
