package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusAt(t *testing.T) {
	const now = int64(1_000_000)

	tests := []struct {
		name    string
		updated int64
		want    SessionStatus
	}{
		{name: "just updated", updated: now, want: StatusWorking},
		{name: "29s ago still working", updated: now - 29, want: StatusWorking},
		{name: "30s ago becomes active", updated: now - 30, want: StatusActive},
		{name: "299s ago still active", updated: now - 299, want: StatusActive},
		{name: "300s ago becomes idle", updated: now - 300, want: StatusIdle},
		{name: "hours ago idle", updated: now - 86400, want: StatusIdle},
		{name: "clock skew treats future updates as working", updated: now + 60, want: StatusWorking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusAt(tt.updated, now))
		})
	}
}

func TestStatusAtMemoStable(t *testing.T) {
	// Repeated lookups of the same key must return the same answer even
	// after enough distinct keys have cycled through to trigger eviction.
	const now = int64(5000)
	first := StatusAt(now-15, now)

	for i := int64(0); i < 500; i++ {
		StatusAt(i, now+i)
	}

	assert.Equal(t, first, StatusAt(now-15, now))
}

func TestSessionStatusAndDuration(t *testing.T) {
	s := Session{
		ID:          "ses_1",
		TimeCreated: 1_000_000 * 1000, // ms
		TimeUpdated: 1_000_040 * 1000,
	}

	now := int64(1_000_100)
	assert.Equal(t, StatusActive, s.Status(now))
	assert.Equal(t, int64(100), s.Duration(now))
	assert.Equal(t, int64(1_000_000), s.CreatedSeconds())
	assert.Equal(t, int64(1_000_040), s.UpdatedSeconds())
}

func TestIsSubagent(t *testing.T) {
	parent := "ses_parent"
	assert.False(t, Session{ID: "a"}.IsSubagent())
	assert.True(t, Session{ID: "b", ParentID: &parent}.IsSubagent())
}
