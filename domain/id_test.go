package domain

import (
	"testing"
	"time"
)

func TestParseIdRoundTrip(t *testing.T) {
	cases := []string{"175928847299117063", "0", "18446744073709551615"}
	for _, s := range cases {
		id, err := ParseId(s)
		if err != nil {
			t.Fatalf("ParseId(%q): %v", s, err)
		}
		if got := id.String(); got != s {
			t.Errorf("ParseId(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestSnowflakeEmbeddedTimestamp(t *testing.T) {
	id, err := ParseId("175928847299117063")
	if err != nil {
		t.Fatalf("ParseId: %v", err)
	}
	tm := id.Time()
	if tm.Year() != 2016 {
		t.Errorf("year = %d, want 2016", tm.Year())
	}
	if tm.Month().String() != "April" {
		t.Errorf("month = %s, want April", tm.Month())
	}
}

func TestIdOrderMatchesTimeOrder(t *testing.T) {
	a := IdFromTime(time.UnixMilli(epochMs))
	b := IdFromTime(time.UnixMilli(epochMs + 5000))
	if !a.Less(b) {
		t.Errorf("expected earlier timestamp to produce smaller id")
	}
}

func TestParseIdFlexibleAcceptsDecimalOrDate(t *testing.T) {
	decimal, err := ParseIdFlexible("175928847299117063")
	if err != nil {
		t.Fatalf("ParseIdFlexible(decimal): %v", err)
	}
	if decimal.String() != "175928847299117063" {
		t.Errorf("decimal round trip = %s", decimal.String())
	}

	fromDate, err := ParseIdFlexible("2016-04-01")
	if err != nil {
		t.Fatalf("ParseIdFlexible(date): %v", err)
	}
	if fromDate.Time().Year() != 2016 {
		t.Errorf("year = %d, want 2016", fromDate.Time().Year())
	}
}

func TestParseIdFlexibleRejectsGarbage(t *testing.T) {
	if _, err := ParseIdFlexible("not-an-id"); err == nil {
		t.Fatal("expected error for unparseable id")
	}
}

func TestDateRoundTripWithinOneSecond(t *testing.T) {
	now := time.Now().UTC()
	id := IdFromTime(now)
	got := id.Time()
	if diff := got.Sub(now); diff > time.Second || diff < -time.Second {
		t.Errorf("round trip drift = %v, want within 1s", diff)
	}
}
