package main

import (
	"testing"
	"time"
)

func TestParseMoney(t *testing.T) {
	cases := map[string]int64{
		"":      0,
		"75":    7500,
		"75.5":  7550,
		"75.50": 7550,
		"0.07":  7,
		"19.99": 1999,
	}
	for in, want := range cases {
		got, err := parseMoney(in)
		if err != nil || got != want {
			t.Errorf("parseMoney(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, bad := range []string{"abc", "-5", "NaN"} {
		if _, err := parseMoney(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2026-03-02")
	if err != nil || !got.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected date %v %v", got, err)
	}
	if got, err := parseDate(""); got != nil || err != nil {
		t.Errorf("Expected nil for empty input, got %v %v", got, err)
	}
	if _, err := parseDate("03/02/2026"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Unexpected %q", got)
	}
	if got := truncate("a very long title", 10); got != "a very ..." {
		t.Errorf("Unexpected %q", got)
	}
}
