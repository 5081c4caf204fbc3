package ratebudget

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestPreferenceShouldRespect(t *testing.T) {
	cases := []struct {
		pref Preference
		kind TokenKind
		want bool
	}{
		{RespectAll, TokenUser, true},
		{RespectAll, TokenBot, true},
		{RespectUser, TokenUser, true},
		{RespectUser, TokenBot, false},
		{RespectBot, TokenBot, true},
		{RespectBot, TokenUser, false},
		{IgnoreAll, TokenUser, false},
		{IgnoreAll, TokenBot, false},
	}
	for _, tt := range cases {
		if got := tt.pref.shouldRespect(tt.kind); got != tt.want {
			t.Errorf("pref=%v kind=%v: got %v, want %v", tt.pref, tt.kind, got, tt.want)
		}
	}
}

func TestParsePreferenceKnownNames(t *testing.T) {
	cases := map[string]Preference{
		"RespectAll":  RespectAll,
		"respectuser": RespectUser,
		"RESPECTBOT":  RespectBot,
		"IgnoreAll":   IgnoreAll,
		"":            RespectAll,
	}
	for name, want := range cases {
		got, err := ParsePreference(name)
		if err != nil {
			t.Fatalf("ParsePreference(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("ParsePreference(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParsePreferenceRejectsUnknown(t *testing.T) {
	if _, err := ParsePreference("bogus"); err == nil {
		t.Fatal("expected error for unknown preference")
	}
}

func TestRetryAfterUsesHeaderWhenPresent(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "2.5")
	d := RetryAfter(h, 0, time.Second, nil)
	if d != 2500*time.Millisecond {
		t.Errorf("RetryAfter = %v, want 2.5s", d)
	}
}

func TestRetryAfterFallsBackToExponentialBackoff(t *testing.T) {
	h := http.Header{}
	d := RetryAfter(h, 3, time.Second, func() time.Duration { return 0 })
	if d != 8*time.Second {
		t.Errorf("RetryAfter = %v, want 8s", d)
	}
}

func TestRetryAfterCapsAtMax(t *testing.T) {
	h := http.Header{}
	d := RetryAfter(h, 20, time.Second, func() time.Duration { return 0 })
	if d != Max {
		t.Errorf("RetryAfter = %v, want capped at %v", d, Max)
	}
}

func TestObserveAndWaitSleepsWhenExhausted(t *testing.T) {
	b := New(RespectAll, TokenBot)
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset-After", "0.01")
	b.Observe(h)
	start := time.Now()
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("expected Wait to sleep for the advertised reset-after window")
	}
}

func TestIgnoreAllNeverSleeps(t *testing.T) {
	b := New(IgnoreAll, TokenBot)
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset-After", "5")
	b.Observe(h)
	start := time.Now()
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("IgnoreAll preference must not sleep")
	}
}
