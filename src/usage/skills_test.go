package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tachikoma-agent/dashboard/src/storage"
)

func partRow(sessionID string, created int64, data string) storage.PartRow {
	return storage.PartRow{
		ID:          "prt_x",
		MessageID:   "msg_x",
		SessionID:   sessionID,
		TimeCreated: created,
		Data:        data,
	}
}

func TestSkillsForSession(t *testing.T) {
	parts := []storage.PartRow{
		partRow("s1", 1000, `{"type":"tool","tool":"skill","state":{"input":{"name":"code-review"}}}`),
		partRow("s1", 2000, `{"type":"tool","tool":"skill","state":{"input":{"name":"docs"}}}`),
		partRow("s1", 3000, `{"type":"tool","tool":"skill","state":{"input":{"name":"code-review"}}}`),
		partRow("s1", 4000, `{"type":"tool","tool":"bash","state":{"input":{"name":"ls"}}}`),
		partRow("s1", 5000, `broken`),
	}

	skills := SkillsForSession("s1", parts)
	require.Len(t, skills, 2)

	assert.Equal(t, "code-review", skills[0].Name)
	assert.Equal(t, int64(2), skills[0].InvocationCount)
	assert.Equal(t, int64(1000), skills[0].TimeLoaded)
	assert.Equal(t, int64(3000), skills[0].LastUsed)
	assert.Equal(t, "s1", skills[0].SessionID)

	assert.Equal(t, "docs", skills[1].Name)
	assert.Equal(t, int64(1), skills[1].InvocationCount)
}

func TestSkillsForSessionEmpty(t *testing.T) {
	assert.Empty(t, SkillsForSession("s1", nil))
}

func sessionPartRow(sessionID string, created int64, data string) storage.SessionPartRow {
	return storage.SessionPartRow{
		PartRow: partRow(sessionID, created, data),
	}
}

func TestSkillUsage(t *testing.T) {
	parts := []storage.SessionPartRow{
		sessionPartRow("s1", 1000, `{"type":"tool","tool":"skill","state":{"status":"completed","input":{"name":"review"},"time":{"start":100,"end":600}}}`),
		sessionPartRow("s2", 2000, `{"type":"tool","tool":"skill","state":{"status":"failed","input":{"name":"review"},"time":{"start":100,"end":400}}}`),
		sessionPartRow("s1", 3000, `{"type":"tool","tool":"my_skill_runner","state":{"status":"completed","input":{"skill_name":"deploy"}}}`),
		sessionPartRow("s1", 4000, `{"type":"tool","tool":"bash","state":{"status":"completed","input":{"name":"ls"}}}`),
	}

	stats := SkillUsage(parts)
	require.Len(t, stats, 2)

	review := stats["review"]
	require.NotNil(t, review)
	assert.Equal(t, int64(2), review.TotalInvocations)
	assert.Equal(t, int64(800), review.TotalDurationMS)
	assert.Equal(t, 2, review.SessionCount())
	assert.Equal(t, int64(1000), review.FirstUsed)
	assert.Equal(t, int64(2000), review.LastUsed)
	assert.Equal(t, int64(1), review.SuccessCount)
	assert.Equal(t, int64(1), review.FailureCount)
	assert.InDelta(t, 0.5, review.SuccessRate(), 1e-9)
	assert.InDelta(t, 400, review.AvgDurationMS(), 1e-9)

	deploy := stats["deploy"]
	require.NotNil(t, deploy)
	assert.Equal(t, int64(1), deploy.TotalInvocations)
	assert.Equal(t, 1, deploy.SessionCount())
}

func TestSkillUsageFallsBackToToolName(t *testing.T) {
	parts := []storage.SessionPartRow{
		sessionPartRow("s1", 1000, `{"type":"tool","tool":"skill","state":{"status":"completed"}}`),
	}

	stats := SkillUsage(parts)
	require.Contains(t, stats, "skill")
	assert.Equal(t, int64(1), stats["skill"].TotalInvocations)
}
