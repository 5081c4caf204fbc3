// Package ratebudget tracks the upstream API's per-response rate-limit
// headers and performs proactive waits, as well as smoothing bursts
// between header refreshes with a local token-bucket limiter.
package ratebudget

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Max is the ceiling applied to any single computed sleep duration.
const Max = 60 * time.Second

// Preference selects which token kinds the budget should be respected for.
type Preference int

const (
	RespectAll Preference = iota
	RespectUser
	RespectBot
	IgnoreAll
)

// ParsePreference parses the config-surface rateLimitPreference values.
func ParsePreference(s string) (Preference, error) {
	switch strings.ToLower(s) {
	case "respectall", "":
		return RespectAll, nil
	case "respectuser":
		return RespectUser, nil
	case "respectbot":
		return RespectBot, nil
	case "ignoreall":
		return IgnoreAll, nil
	default:
		return 0, fmt.Errorf("ratebudget: unknown rate limit preference %q", s)
	}
}

// TokenKind distinguishes user tokens (no "Bot " prefix) from bot tokens.
type TokenKind int

const (
	TokenUser TokenKind = iota
	TokenBot
)

// shouldRespect reports whether budget sleeps should be honoured for kind
// under preference p.
func (p Preference) shouldRespect(kind TokenKind) bool {
	switch p {
	case RespectAll:
		return true
	case RespectUser:
		return kind == TokenUser
	case RespectBot:
		return kind == TokenBot
	default: // IgnoreAll
		return false
	}
}

// Budget accumulates the remaining-requests/reset-after pair advertised by
// the most recent response and exposes a Wait that sleeps when the bucket
// is exhausted. One Budget is owned by one ApiClient; it is not shared
// across pipelines.
type Budget struct {
	preference Preference
	tokenKind  TokenKind
	limiter    *rate.Limiter

	remaining  int
	resetAfter time.Duration
	haveData   bool
}

// New creates a Budget. The limiter is a fixed 50 req/s, burst 50 token
// bucket; Observe does not change it. It smooths bursts between header
// refreshes and does not replace the header-driven sleep.
func New(preference Preference, tokenKind TokenKind) *Budget {
	return &Budget{
		preference: preference,
		tokenKind:  tokenKind,
		limiter:    rate.NewLimiter(rate.Limit(50), 50),
	}
}

// Observe updates the budget from a response's rate-limit headers.
func (b *Budget) Observe(h http.Header) {
	remStr := h.Get("X-RateLimit-Remaining")
	resetStr := h.Get("X-RateLimit-Reset-After")
	if remStr == "" || resetStr == "" {
		return
	}
	remaining, err := strconv.Atoi(remStr)
	if err != nil {
		return
	}
	resetAfterSeconds, err := strconv.ParseFloat(resetStr, 64)
	if err != nil {
		return
	}
	b.remaining = remaining
	b.resetAfter = time.Duration(resetAfterSeconds * float64(time.Second))
	b.haveData = true
}

// Wait blocks until the next request is safe to issue, honouring both the
// header-driven proactive sleep and the local smoothing limiter. It is a
// no-op when the configured preference says to ignore this token kind.
func (b *Budget) Wait(ctx context.Context) error {
	if !b.preference.shouldRespect(b.tokenKind) {
		return nil
	}
	if b.haveData && b.remaining <= 0 {
		sleep := b.resetAfter + time.Second
		if sleep > Max {
			sleep = Max
		}
		b.haveData = false // consume: the next response will re-arm this.
		if err := sleepCtx(ctx, sleep); err != nil {
			return err
		}
	}
	return b.limiter.Wait(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryAfter computes the sleep duration for a retried request: the
// response's explicit Retry-After header if present, else the exponential
// backoff formula BASE*2^attempt + jitter, both capped at Max.
func RetryAfter(h http.Header, attempt int, base time.Duration, jitter func() time.Duration) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			d := time.Duration(secs * float64(time.Second))
			if d > Max {
				d = Max
			}
			return d
		}
	}
	d := base * time.Duration(1<<uint(attempt))
	if jitter != nil {
		d += jitter()
	}
	if d > Max {
		d = Max
	}
	return d
}
