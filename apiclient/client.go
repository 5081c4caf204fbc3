// Package apiclient is an authenticated, rate-limited, retrying HTTP
// client for the upstream chat API, exposing single-item fetches and
// lazy paginated streams. It decodes responses into discordgo's wire
// structs and converts them into domain.* value objects — discordgo is
// used here purely as a JSON schema, never for its gateway/session code.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/ratebudget"
)

const (
	apiBase      = "https://discord.com/api/v10"
	maxAttempts  = 5
	retryBase    = 1 * time.Second
	pageSize     = 100
	connectTimeout = 10 * time.Second
	idleTimeout    = 30 * time.Second
)

// Client is an authenticated, rate-limited API client for one export run.
type Client struct {
	httpClient *http.Client
	token      string
	tokenKind  ratebudget.TokenKind
	budget     *ratebudget.Budget
	baseURL    string // overridable for tests
	appFlags   int
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithBaseURL overrides the upstream API base URL, for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// New probes the token's auth mode (spec §4.1) and returns a ready Client.
// Auth failure on both probes is fatal.
func New(ctx context.Context, token string, pref ratebudget.Preference, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: connectTimeout + idleTimeout},
		token:      token,
		baseURL:    apiBase,
	}
	for _, o := range opts {
		o(c)
	}

	kind, err := c.probeAuthMode(ctx)
	if err != nil {
		return nil, fatalf("New", "auth probe: %w", err)
	}
	c.tokenKind = kind
	c.budget = ratebudget.New(pref, kind)

	if kind == ratebudget.TokenBot {
		if app, err := c.getApplicationRaw(ctx); err == nil {
			c.appFlags = app.Flags
		}
	}
	return c, nil
}

// probeAuthMode implements spec §4.1: probe GET /users/@me first with the
// raw token header, then with a "Bot " prefix; whichever returns != 401 wins.
func (c *Client) probeAuthMode(ctx context.Context) (ratebudget.TokenKind, error) {
	if c.authHeaderWorks(ctx, c.token) {
		return ratebudget.TokenUser, nil
	}
	if c.authHeaderWorks(ctx, "Bot "+c.token) {
		return ratebudget.TokenBot, nil
	}
	return 0, ErrInvalidToken
}

func (c *Client) authHeaderWorks(ctx context.Context, authHeader string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/@me", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", authHeader)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode != http.StatusUnauthorized
}

func (c *Client) authHeader() string {
	if c.tokenKind == ratebudget.TokenBot {
		return "Bot " + c.token
	}
	return c.token
}

// doRequest sends one request with retry/backoff/rate-budget handling per
// spec §4.1. It returns the decoded response body bytes on success.
func (c *Client) doRequest(ctx context.Context, method, url string, body any) ([]byte, *http.Response, error) {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(b)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, lastDelay(attempt, lastErr)); err != nil {
				return nil, nil, err
			}
		}
		if err := c.budget.Wait(ctx); err != nil {
			return nil, nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout+idleTimeout)
		req, err := http.NewRequestWithContext(attemptCtx, method, url, payload)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", c.authHeader())
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			cancel()
			lastErr = transientErr{err}
			slog.Debug("apiclient: transport error, retrying", "attempt", attempt, "error", err)
			continue
		}

		c.budget.Observe(resp.Header)

		if retryableStatus(resp.StatusCode) {
			retryAfterHeader := resp.Header
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			cancel()
			lastErr = statusErr{resp.StatusCode, string(respBody), retryAfterHeader}
			slog.Debug("apiclient: retryable status, retrying", "attempt", attempt, "status", resp.StatusCode)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if err != nil {
			return nil, nil, fmt.Errorf("read response: %w", err)
		}
		return data, resp, nil
	}
	return nil, nil, fatalf("doRequest", "exhausted %d attempts: %w", maxAttempts, lastErr)
}

type transientErr struct{ err error }

func (t transientErr) Error() string { return t.err.Error() }

type statusErr struct {
	status int
	body   string
	header http.Header
}

func (s statusErr) Error() string { return fmt.Sprintf("HTTP %d: %s", s.status, s.body) }

func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests ||
		(status >= 500 && status < 600)
}

func lastDelay(attempt int, lastErr error) time.Duration {
	if se, ok := lastErr.(statusErr); ok {
		return ratebudget.RetryAfter(se.header, attempt-1, retryBase, jitter)
	}
	return ratebudget.RetryAfter(http.Header{}, attempt-1, retryBase, jitter)
}

func jitter() time.Duration {
	return time.Duration(rand.Int64N(int64(time.Second)))
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

// request performs method against path (sending body as JSON when it is
// non-nil) and decodes the JSON response into out. Non-2xx terminal statuses become an
// error; the caller decides fatal-vs-recoverable based on the call site.
func (c *Client) request(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	data, resp, err := c.doRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return resp, statusErr{resp.StatusCode, string(data), resp.Header}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

// --- single-item fetches ---

// GetGuild fetches a guild by id. Fatal on any error: the orchestrator
// cannot proceed without knowing the guild it is exporting from.
func (c *Client) GetGuild(ctx context.Context, id domain.Id) (domain.Guild, error) {
	var w discordgo.Guild
	if _, err := c.request(ctx, http.MethodGet, "/guilds/"+id.String(), nil, &w); err != nil {
		return domain.Guild{}, fatalf("GetGuild", "%w", err)
	}
	return domain.FromGuild(&w)
}

// GetChannel fetches a channel by id.
func (c *Client) GetChannel(ctx context.Context, id domain.Id) (domain.Channel, error) {
	var w discordgo.Channel
	if _, err := c.request(ctx, http.MethodGet, "/channels/"+id.String(), nil, &w); err != nil {
		return domain.Channel{}, fatalf("GetChannel", "%w", err)
	}
	return domain.FromChannel(&w, nil)
}

type applicationPayload struct {
	Flags int `json:"flags"`
}

func (c *Client) getApplicationRaw(ctx context.Context) (applicationPayload, error) {
	var app applicationPayload
	_, err := c.request(ctx, http.MethodGet, "/oauth2/applications/@me", nil, &app)
	return app, err
}

// GetApplication returns the bound application's flags (used to detect the
// message-content intent). The endpoint is called whatever the token
// kind; any failure, including a rejection of a user token, is fatal.
func (c *Client) GetApplication(ctx context.Context) (flags int, err error) {
	app, err := c.getApplicationRaw(ctx)
	if err != nil {
		return 0, fatalf("GetApplication", "%w", err)
	}
	return app.Flags, nil
}

const intentMessageContent = 1 << 15

func (c *Client) hasContentIntent() bool {
	return c.appFlags&intentMessageContent != 0
}

// TryGetUser fetches a user by id. Returns (nil, nil) on 403/404.
func (c *Client) TryGetUser(ctx context.Context, id domain.Id) (*domain.User, error) {
	var w discordgo.User
	_, err := c.request(ctx, http.MethodGet, "/users/"+id.String(), nil, &w)
	if isRecoverableMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fatalf("TryGetUser", "%w", err)
	}
	u, err := domain.FromUser(&w)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// TryGetGuildMember fetches a member by guild+user id. Returns (nil, nil) on 403/404.
func (c *Client) TryGetGuildMember(ctx context.Context, guildID, userID domain.Id) (*domain.Member, error) {
	var w discordgo.Member
	_, err := c.request(ctx, http.MethodGet, "/guilds/"+guildID.String()+"/members/"+userID.String(), nil, &w)
	if isRecoverableMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fatalf("TryGetGuildMember", "%w", err)
	}
	m, err := domain.FromMember(&w, guildID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// TryGetInvite fetches invite metadata by code. Returns (nil, nil) on 403/404.
func (c *Client) TryGetInvite(ctx context.Context, code string) (map[string]any, error) {
	var w map[string]any
	_, err := c.request(ctx, http.MethodGet, "/invites/"+code, nil, &w)
	if isRecoverableMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fatalf("TryGetInvite", "%w", err)
	}
	return w, nil
}

func isRecoverableMiss(err error) bool {
	if err == nil {
		return false
	}
	se, ok := err.(statusErr)
	if !ok {
		return false
	}
	return se.status == http.StatusForbidden || se.status == http.StatusNotFound
}
