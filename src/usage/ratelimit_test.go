package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tachikoma-agent/dashboard/src/model"
)

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		name string
		err  model.PayloadError
		want bool
	}{
		{
			name: "rate_limit in error name",
			err:  model.PayloadError{Name: "RATE_LIMIT_ERROR"},
			want: true,
		},
		{
			name: "rate limit phrase in message",
			err:  model.PayloadError{Name: "api_error", Data: model.PayloadErrorData{Message: "Rate limit exceeded"}},
			want: true,
		},
		{
			name: "quota in message",
			err:  model.PayloadError{Name: "api_error", Data: model.PayloadErrorData{Message: "monthly quota exhausted"}},
			want: true,
		},
		{
			name: "unrelated error",
			err:  model.PayloadError{Name: "server_error", Data: model.PayloadErrorData{Message: "internal failure"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRateLimit(&tt.err))
		})
	}
}

func TestExtractRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		err    model.PayloadError
		wantMS *int64
	}{
		{
			name:   "structured field wins over message text",
			err:    model.PayloadError{Data: model.PayloadErrorData{Message: "retry after 5 minutes", RetryAfter: float64(1234)}},
			wantMS: ptr(int64(1234)),
		},
		{
			name:   "seconds from message",
			err:    model.PayloadError{Data: model.PayloadErrorData{Message: "Please retry after 60 seconds"}},
			wantMS: ptr(int64(60000)),
		},
		{
			name:   "singular second",
			err:    model.PayloadError{Data: model.PayloadErrorData{Message: "retry after 1 second"}},
			wantMS: ptr(int64(1000)),
		},
		{
			name:   "minutes",
			err:    model.PayloadError{Data: model.PayloadErrorData{Message: "retry after 2 minutes"}},
			wantMS: ptr(int64(120000)),
		},
		{
			name:   "min abbreviation",
			err:    model.PayloadError{Data: model.PayloadErrorData{Message: "retry after 3 min"}},
			wantMS: ptr(int64(180000)),
		},
		{
			name:   "hours",
			err:    model.PayloadError{Data: model.PayloadErrorData{Message: "retry after 1 hour"}},
			wantMS: ptr(int64(3600000)),
		},
		{
			name:   "no hint",
			err:    model.PayloadError{Data: model.PayloadErrorData{Message: "rate limit exceeded"}},
			wantMS: nil,
		},
		{
			name:   "no number",
			err:    model.PayloadError{Data: model.PayloadErrorData{Message: "retry after a while"}},
			wantMS: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRetryAfter(&tt.err)
			if tt.wantMS == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.wantMS, *got)
		})
	}
}

func ptr[T any](v T) *T { return &v }
