package tsparse

import (
	"errors"
	"testing"
)

func TestParseInstantEpochMillis(t *testing.T) {
	got, err := ParseInstant("1720660000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UnixMilli() != 1720660000000 {
		t.Fatalf("got %v", got)
	}
}

func TestParseInstantISOWithOffset(t *testing.T) {
	got, err := ParseInstant("2025-07-11T00:00:00+0000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hour() != 0 || got.Day() != 11 {
		t.Fatalf("got %v", got)
	}
}

func TestParseInstantISOWithZ(t *testing.T) {
	got, err := ParseInstant("2025-07-11T01:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Minute() != 30 {
		t.Fatalf("got %v", got)
	}
}

func TestParseInstantRejectsGarbage(t *testing.T) {
	if _, err := ParseInstant("not-a-timestamp"); !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestParseRangeHappyPath(t *testing.T) {
	ms, err := ParseRange("[Thu Jul 10 22:25:00 UTC 2025,Fri Jul 11 00:00:00 UTC 2025]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := int64((1*60*60 + 35*60) * 1000)
	if ms != want {
		t.Fatalf("got %d ms, want %d", ms, want)
	}
}

func TestParseRangeNegativeDurationFails(t *testing.T) {
	_, err := ParseRange("[Fri Jul 11 00:00:00 UTC 2025,Thu Jul 10 22:25:00 UTC 2025]")
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestParseRangeMalformedHalfFails(t *testing.T) {
	_, err := ParseRange("[garbage,Fri Jul 11 00:00:00 UTC 2025]")
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestParseRangeNoBracketsFails(t *testing.T) {
	_, err := ParseRange("Thu Jul 10 22:25:00 UTC 2025,Fri Jul 11 00:00:00 UTC 2025")
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
}
