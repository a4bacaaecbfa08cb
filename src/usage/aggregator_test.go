package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tachikoma-agent/dashboard/src/storage"
)

func msgRow(sessionID string, created int64, data string) storage.MessageRow {
	return storage.MessageRow{
		ID:          "msg_" + sessionID,
		SessionID:   sessionID,
		TimeCreated: created,
		TimeUpdated: created,
		Data:        data,
	}
}

func TestAggregateTokens(t *testing.T) {
	// Newest first, matching the query order.
	assistant := []storage.MessageRow{
		msgRow("s1", 3000, `{"role":"assistant","providerID":"anthropic","modelID":"claude-sonnet-4","tokens":{"input":100,"output":50}}`),
		msgRow("s1", 2000, `{"role":"assistant","providerID":"anthropic","modelID":"claude-sonnet-4","tokens":{"input":200,"output":80}}`),
		msgRow("s2", 1000, `{"role":"assistant","providerID":"openai","modelID":"gpt-4o","tokens":{"input":10,"output":5}}`),
	}

	stats := Aggregate(assistant, nil)
	require.Len(t, stats, 2)

	sonnet := stats["anthropic/claude-sonnet-4"]
	require.NotNil(t, sonnet)
	assert.Equal(t, int64(2), sonnet.RequestCount)
	assert.Equal(t, int64(300), sonnet.InputTokens)
	assert.Equal(t, int64(130), sonnet.OutputTokens)
	assert.Equal(t, int64(430), sonnet.TotalTokens)
	// First row seen is the newest.
	assert.Equal(t, int64(3000), sonnet.LastUsed)

	gpt := stats["openai/gpt-4o"]
	require.NotNil(t, gpt)
	assert.Equal(t, int64(15), gpt.TotalTokens)
}

func TestAggregateTotalInvariant(t *testing.T) {
	assistant := []storage.MessageRow{
		msgRow("s1", 1, `{"role":"assistant","providerID":"p","modelID":"m","tokens":{"input":7,"output":11}}`),
		msgRow("s1", 2, `{"role":"assistant","providerID":"p","modelID":"m","tokens":{"input":13,"output":17}}`),
	}

	stats := Aggregate(assistant, nil)
	u := stats["p/m"]
	require.NotNil(t, u)
	assert.Equal(t, u.InputTokens+u.OutputTokens, u.TotalTokens)
}

func TestAggregateSkipsMalformedRows(t *testing.T) {
	assistant := []storage.MessageRow{
		msgRow("s1", 1, `{"role":"assistant","providerID":"p","modelID":"m","tokens":{"input":1,"output":1}}`),
		msgRow("s1", 2, `{not json`),
		msgRow("s1", 3, ``),
	}

	stats := Aggregate(assistant, nil)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats["p/m"].RequestCount)
}

func TestAggregateErrors(t *testing.T) {
	errorRows := []storage.MessageRow{
		msgRow("s1", 9000, `{"providerID":"anthropic","modelID":"claude-sonnet-4","error":{"name":"rate_limit_error","data":{"message":"rate limit exceeded, retry after 60 seconds"}}}`),
		msgRow("s1", 8000, `{"providerID":"anthropic","modelID":"claude-sonnet-4","error":{"name":"overloaded_error","data":{"message":"overloaded"}}}`),
	}

	stats := Aggregate(nil, errorRows)
	u := stats["anthropic/claude-sonnet-4"]
	require.NotNil(t, u)

	assert.Equal(t, int64(2), u.ErrorCount)
	// First error row seen is the newest, and sticks.
	require.NotNil(t, u.LastError)
	assert.Equal(t, int64(9000), *u.LastError)
	assert.Equal(t, "rate_limit_error", u.LastErrorType)

	require.NotNil(t, u.LastRateLimit)
	assert.Equal(t, int64(9000), *u.LastRateLimit)
	require.NotNil(t, u.RetryAfterMS)
	assert.Equal(t, int64(60000), *u.RetryAfterMS)
}

func TestAggregateErrorOnUnseenModelCreatesEntry(t *testing.T) {
	errorRows := []storage.MessageRow{
		msgRow("s1", 100, `{"providerID":"openai","modelID":"gpt-4o","error":{"name":"server_error","data":{"message":"boom"}}}`),
	}

	stats := Aggregate(nil, errorRows)
	u := stats["openai/gpt-4o"]
	require.NotNil(t, u)
	assert.Equal(t, int64(0), u.RequestCount)
	assert.Equal(t, int64(1), u.ErrorCount)
	assert.Equal(t, "server_error", u.LastErrorType)
}

func TestAggregateUnnamedErrorBecomesUnknown(t *testing.T) {
	errorRows := []storage.MessageRow{
		msgRow("s1", 100, `{"providerID":"p","modelID":"m","error":{"name":"","data":{"message":"oops"}}}`),
	}

	stats := Aggregate(nil, errorRows)
	assert.Equal(t, "Unknown", stats["p/m"].LastErrorType)
}

func TestAggregateSession(t *testing.T) {
	rows := []storage.MessageRow{
		msgRow("s1", 3000, `{"providerID":"anthropic","modelID":"claude-sonnet-4","tokens":{"input":50,"output":25}}`),
		msgRow("s1", 2000, `{"providerID":"openai","modelID":"gpt-4o","tokens":{"input":30,"output":10}}`),
		msgRow("s1", 1000, `{"providerID":"anthropic","modelID":"claude-sonnet-4","tokens":{"input":20,"output":5}}`),
	}

	tokens := AggregateSession("s1", rows)
	assert.Equal(t, "s1", tokens.SessionID)
	assert.Equal(t, int64(100), tokens.TotalInputTokens)
	assert.Equal(t, int64(40), tokens.TotalOutputTokens)
	assert.Equal(t, int64(140), tokens.TotalTokens)
	assert.Equal(t, int64(3), tokens.RequestCount)

	// Breakdown is ordered most-recently-used first.
	require.Len(t, tokens.Models, 2)
	assert.Equal(t, "anthropic/claude-sonnet-4", tokens.Models[0].ModelKey())
	// Both anthropic rows accumulate: (50+25) + (20+5).
	assert.Equal(t, int64(100), tokens.Models[0].TotalTokens)
	assert.Equal(t, int64(2), tokens.Models[0].RequestCount)
	assert.Equal(t, "openai/gpt-4o", tokens.Models[1].ModelKey())
}

func TestSorted(t *testing.T) {
	stats := Aggregate([]storage.MessageRow{
		msgRow("s1", 3, `{"providerID":"a","modelID":"small","tokens":{"input":1,"output":1}}`),
		msgRow("s1", 2, `{"providerID":"b","modelID":"big","tokens":{"input":500,"output":500}}`),
		msgRow("s1", 1, `{"providerID":"a","modelID":"also-small","tokens":{"input":1,"output":1}}`),
	}, nil)

	sorted := Sorted(stats)
	require.Len(t, sorted, 3)
	assert.Equal(t, "b/big", sorted[0].ModelKey())
	// Equal totals fall back to key order.
	assert.Equal(t, "a/also-small", sorted[1].ModelKey())
	assert.Equal(t, "a/small", sorted[2].ModelKey())
}

func TestRecentErrors(t *testing.T) {
	rows := []storage.MessageRow{
		msgRow("s1", 5000, `{"providerID":"p","modelID":"m","error":{"name":"rate_limit_error","data":{"message":"slow down"}}}`),
		msgRow("s2", 4000, `{"providerID":"p","modelID":"m","tokens":{"input":1,"output":1}}`),
		msgRow("s3", 3000, `{"providerID":"p","modelID":"m","error":{"name":"","data":{"message":"mystery"}}}`),
		msgRow("s4", 2000, `{"providerID":"p","modelID":"m","error":{"name":"server_error","data":{"message":"boom"}}}`),
	}

	errs := RecentErrors(rows, 2)
	require.Len(t, errs, 2)
	assert.Equal(t, "rate_limit_error", errs[0].ErrorName)
	assert.Equal(t, "s1", errs[0].SessionID)
	assert.Equal(t, "Unknown", errs[1].ErrorName)
	assert.Equal(t, "mystery", errs[1].ErrorMessage)

	all := RecentErrors(rows, 0)
	assert.Len(t, all, 3)
}
