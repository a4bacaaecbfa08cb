package model

// Session is one agent run as stored in the session table. A session with a
// parent is a subagent spawned by that parent. Values are immutable once
// constructed; a refresh cycle produces new values rather than mutating old
// ones, and a session disappears only by falling out of the result set.
type Session struct {
	ID          string  `json:"id" db:"id"`
	ParentID    *string `json:"parent_id" db:"parent_id"`
	ProjectID   string  `json:"project_id" db:"project_id"`
	Title       string  `json:"title" db:"title"`
	Directory   string  `json:"directory" db:"directory"`
	TimeCreated int64   `json:"time_created" db:"time_created"` // ms since epoch
	TimeUpdated int64   `json:"time_updated" db:"time_updated"` // ms since epoch
}

// IsSubagent reports whether this session was spawned by another session.
func (s Session) IsSubagent() bool {
	return s.ParentID != nil
}

// CreatedSeconds returns the creation time in seconds since epoch.
func (s Session) CreatedSeconds() int64 {
	return s.TimeCreated / 1000
}

// UpdatedSeconds returns the last update time in seconds since epoch.
func (s Session) UpdatedSeconds() int64 {
	return s.TimeUpdated / 1000
}

// Duration returns how long the session has existed, in seconds.
func (s Session) Duration(nowSeconds int64) int64 {
	return nowSeconds - s.CreatedSeconds()
}

// Status derives the liveness state from time since the last update.
func (s Session) Status(nowSeconds int64) SessionStatus {
	return StatusAt(s.UpdatedSeconds(), nowSeconds)
}

// Todo is one task row scoped to a session. Display order is by Position
// ascending.
type Todo struct {
	SessionID   string `json:"session_id" db:"session_id"`
	Content     string `json:"content" db:"content"`
	Status      string `json:"status" db:"status"`     // pending, in_progress, completed
	Priority    string `json:"priority" db:"priority"` // high, medium, low
	Position    int64  `json:"position" db:"position"`
	TimeCreated int64  `json:"time_created" db:"time_created"`
	TimeUpdated int64  `json:"time_updated" db:"time_updated"`
}

// SessionStats is a per-session rollup computed fresh on each request.
// ToolCallCount counts assistant-role messages, which is a proxy for tool
// invocations.
type SessionStats struct {
	MessageCount    int64   `json:"message_count"`
	ToolCallCount   int64   `json:"tool_call_count"`
	LastUserMessage *string `json:"last_user_message,omitempty"`
}

// ModelUsage is a per-model rollup keyed by "{provider}/{model}". Timestamps
// are milliseconds since epoch; nil pointers mean the event was never
// observed.
type ModelUsage struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	RequestCount  int64  `json:"request_count"`
	InputTokens   int64  `json:"input_tokens"`
	OutputTokens  int64  `json:"output_tokens"`
	TotalTokens   int64  `json:"total_tokens"`
	LastUsed      int64  `json:"last_used,omitempty"`
	LastRateLimit *int64 `json:"last_rate_limit,omitempty"`
	RetryAfterMS  *int64 `json:"retry_after_ms,omitempty"`
	ErrorCount    int64  `json:"error_count"`
	LastError     *int64 `json:"last_error,omitempty"`
	LastErrorType string `json:"last_error_type,omitempty"`
}

// ModelKey returns the "{provider}/{model}" key this rollup is stored under.
func (u ModelUsage) ModelKey() string {
	return u.Provider + "/" + u.Model
}

// AvgTokensPerRequest returns the mean token spend per request.
func (u ModelUsage) AvgTokensPerRequest() float64 {
	if u.RequestCount == 0 {
		return 0
	}
	return float64(u.TotalTokens) / float64(u.RequestCount)
}

// SessionTokens is the token rollup for a single session, with per-model
// breakdowns.
type SessionTokens struct {
	SessionID         string       `json:"session_id"`
	TotalInputTokens  int64        `json:"total_input_tokens"`
	TotalOutputTokens int64        `json:"total_output_tokens"`
	TotalTokens       int64        `json:"total_tokens"`
	RequestCount      int64        `json:"request_count"`
	Models            []ModelUsage `json:"models,omitempty"`
}

// ModelError is one observed provider failure.
type ModelError struct {
	SessionID    string `json:"session_id"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	ErrorName    string `json:"error_name"`
	ErrorMessage string `json:"error_message"`
	Timestamp    int64  `json:"timestamp"` // ms since epoch
}

// Skill is a skill loaded during a session, with invocation metrics gathered
// from its tool-call parts.
type Skill struct {
	Name            string `json:"name"`
	SessionID       string `json:"session_id"`
	TimeLoaded      int64  `json:"time_loaded"`
	InvocationCount int64  `json:"invocation_count"`
	LastUsed        int64  `json:"last_used,omitempty"`
}
