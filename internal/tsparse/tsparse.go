// Package tsparse parses the three timestamp shapes the replay and historic
// stores hand to this system: ISO-8601 instants, epoch-millisecond integer
// strings, and the bracketed range literal used for predicted flight
// durations. Parsing always happens in UTC; local-zone drift is a defect.
package tsparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned for any input that matches none of the
// three accepted shapes, or whose range literal fails to parse or yields a
// negative duration.
var ErrInvalidTimestamp = fmt.Errorf("invalid timestamp")

// rangeHalfLayout is the fixed pattern used for each half of a bracketed
// range literal: "Thu Jul 10 22:25:00 UTC 2025".
const rangeHalfLayout = "Mon Jan 2 15:04:05 MST 2006"

// ParseInstant parses an ISO-8601 instant (optionally with "+0000", which is
// normalised to "Z" before parsing) or a decimal epoch-milliseconds string.
// It never accepts a bracketed range literal; use ParseRange for that.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(n).UTC(), nil
	}

	normalized := s
	if strings.HasSuffix(normalized, "+0000") {
		normalized = strings.TrimSuffix(normalized, "+0000") + "Z"
	}
	t, err := time.Parse(time.RFC3339, normalized)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, normalized)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
		}
	}
	return t.UTC(), nil
}

// ParseRange parses the bracketed range literal
// "[Thu Jul 10 22:25:00 UTC 2025,Fri Jul 11 00:00:00 UTC 2025]" and returns
// arrival-departure in milliseconds. It fails with ErrInvalidTimestamp if
// either half fails to parse or the result is negative.
func ParseRange(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return 0, ErrInvalidTimestamp
	}
	inner := s[1 : len(s)-1]
	idx := strings.IndexByte(inner, ',')
	if idx < 0 {
		return 0, ErrInvalidTimestamp
	}
	depStr := strings.TrimSpace(inner[:idx])
	arrStr := strings.TrimSpace(inner[idx+1:])

	dep, err := time.Parse(rangeHalfLayout, depStr)
	if err != nil {
		return 0, fmt.Errorf("%w: departure half: %v", ErrInvalidTimestamp, err)
	}
	arr, err := time.Parse(rangeHalfLayout, arrStr)
	if err != nil {
		return 0, fmt.Errorf("%w: arrival half: %v", ErrInvalidTimestamp, err)
	}

	durationMs := arr.UTC().Sub(dep.UTC()).Milliseconds()
	if durationMs < 0 {
		return 0, fmt.Errorf("%w: negative duration", ErrInvalidTimestamp)
	}
	return durationMs, nil
}
