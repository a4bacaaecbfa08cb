package usage

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tachikoma-agent/dashboard/src/model"
)

// Rate-limit classification is a heuristic over free-text provider error
// messages, not a guaranteed classifier. Providers phrase these however they
// like; the substrings below match the formats seen in practice.
func isRateLimit(e *model.PayloadError) bool {
	name := strings.ToLower(e.Name)
	message := strings.ToLower(e.Data.Message)
	return strings.Contains(name, "rate_limit") ||
		strings.Contains(message, "rate limit") ||
		strings.Contains(message, "quota")
}

// Matches "retry after 60 seconds", "retry after 2 minutes", "retry after
// 1 hour" and the like, case-insensitively.
var retryAfterPattern = regexp.MustCompile(`retry after\s+(\d+)\s*(second|minute|min|hour)`)

// ExtractRetryAfter returns the retry hint in milliseconds. It tries the
// structured retry_after/retryAfter fields first, then falls back to parsing
// the message text. Nil when neither yields a value; the hint is never
// guessed.
func ExtractRetryAfter(e *model.PayloadError) *int64 {
	if ms, ok := e.StructuredRetryAfter(); ok {
		return &ms
	}

	match := retryAfterPattern.FindStringSubmatch(strings.ToLower(e.Data.Message))
	if match == nil {
		return nil
	}

	value, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return nil
	}

	var ms int64
	switch {
	case strings.HasPrefix(match[2], "minute"), match[2] == "min":
		ms = value * 60 * 1000
	case strings.HasPrefix(match[2], "hour"):
		ms = value * 3600 * 1000
	default:
		ms = value * 1000
	}
	return &ms
}
