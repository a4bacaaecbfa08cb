package model

import (
	"encoding/json"
	"strconv"
)

// MessagePayload is the schemaless JSON blob stored in message.data. Payload
// shapes vary by provider and role, so every field is optional: absent fields
// decode to zero values and callers must treat them as such. A blob that
// fails to decode at all is skipped by the caller, never fatal.
type MessagePayload struct {
	Role       string        `json:"role"`
	ProviderID string        `json:"providerID"`
	ModelID    string        `json:"modelID"`
	Tokens     TokenCounts   `json:"tokens"`
	Error      *PayloadError `json:"error"`
}

// TokenCounts is the token accounting block on assistant messages.
type TokenCounts struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
}

// PayloadError is the error block attached to a failed assistant message.
type PayloadError struct {
	Name string           `json:"name"`
	Data PayloadErrorData `json:"data"`
}

// PayloadErrorData carries the provider error detail. Retry hints show up
// under either retry_after or retryAfter depending on the provider, and are
// sometimes numbers, sometimes strings.
type PayloadErrorData struct {
	Message         string `json:"message"`
	RetryAfter      any    `json:"retry_after"`
	RetryAfterCamel any    `json:"retryAfter"`
}

// ParseMessagePayload decodes a message.data blob. Returns an error for
// malformed JSON; the row should then be skipped.
func ParseMessagePayload(data string) (*MessagePayload, error) {
	var p MessagePayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Provider returns the provider id, defaulting to "unknown".
func (p *MessagePayload) Provider() string {
	if p.ProviderID == "" {
		return "unknown"
	}
	return p.ProviderID
}

// Model returns the model id, defaulting to "unknown".
func (p *MessagePayload) Model() string {
	if p.ModelID == "" {
		return "unknown"
	}
	return p.ModelID
}

// ModelKey returns the "{provider}/{model}" aggregation key.
func (p *MessagePayload) ModelKey() string {
	return p.Provider() + "/" + p.Model()
}

// StructuredRetryAfter returns the retry hint in milliseconds from the
// structured fields, checking retry_after before retryAfter. It does not
// parse free text; see usage.ExtractRetryAfter for the full chain.
func (e *PayloadError) StructuredRetryAfter() (int64, bool) {
	if ms, ok := coerceInt64(e.Data.RetryAfter); ok {
		return ms, true
	}
	return coerceInt64(e.Data.RetryAfterCamel)
}

func coerceInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// PartPayload is the decoded data blob of a part row. Text parts carry user
// message content; tool parts carry tool-call state, including skill loads
// (tool == "skill" with the skill name under state.input.name).
type PartPayload struct {
	Type  string    `json:"type"`
	Text  string    `json:"text"`
	Tool  string    `json:"tool"`
	State PartState `json:"state"`
}

// PartState is the execution state of a tool part.
type PartState struct {
	Status string         `json:"status"`
	Input  PartStateInput `json:"input"`
	Time   PartStateTime  `json:"time"`
}

// PartStateInput is the tool invocation input. Skill loads name the skill
// under either name or skill_name.
type PartStateInput struct {
	Name      string `json:"name"`
	SkillName string `json:"skill_name"`
}

// PartStateTime is the start/end interval of a tool call, in milliseconds.
type PartStateTime struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// ParsePartPayload decodes a part.data blob. Malformed rows are skipped by
// callers.
func ParsePartPayload(data string) (*PartPayload, error) {
	var p PartPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SkillName returns the skill named by a tool part, or "" when the part is
// not a skill load.
func (p *PartPayload) SkillName() string {
	if p.Tool != "skill" {
		return ""
	}
	if p.State.Input.Name != "" {
		return p.State.Input.Name
	}
	return p.State.Input.SkillName
}

// DurationMS returns the tool-call duration when both endpoints are present.
func (p *PartPayload) DurationMS() int64 {
	if p.State.Time.Start == 0 || p.State.Time.End == 0 {
		return 0
	}
	return p.State.Time.End - p.State.Time.Start
}
