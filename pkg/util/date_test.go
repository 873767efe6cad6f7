package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeInvalid(t *testing.T) {
	if _, ok := ParseTime("yesterday"); ok {
		t.Fatalf("expected failure")
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("09:30")
	if err != nil || h != 9 || m != 30 {
		t.Fatalf("got %d:%d err=%v", h, m, err)
	}
	if _, _, err := ParseClock("9h30"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCanonicalClock(t *testing.T) {
	for in, want := range map[string]string{"9:00": "09:00", "09:05": "09:05", "23:59": "23:59"} {
		got, err := CanonicalClock(in)
		if err != nil || got != want {
			t.Fatalf("CanonicalClock(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := CanonicalClock("9am"); err == nil {
		t.Fatalf("expected failure")
	}
}

func TestDateRange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	from, _ := ParseDate("2024-03-08", loc)
	to, _ := ParseDate("2024-03-11", loc) // spans the DST switch
	days := DateRange(from, to)
	if len(days) != 4 {
		t.Fatalf("expected 4 days, got %d", len(days))
	}
	for _, d := range days {
		if d.Hour() != 0 || d.Minute() != 0 {
			t.Fatalf("day %v not at midnight", d)
		}
	}
	if DateRange(to, from) != nil {
		t.Fatalf("expected empty range")
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a, ,b,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected %v", got)
	}
}
