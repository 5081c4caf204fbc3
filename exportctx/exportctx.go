// Package exportctx holds the per-export cache of members, channels, and
// roles, plus the derived lookups and asset/date formatting helpers that
// writers need while rendering one channel.
package exportctx

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/archiveworks/chatexport/apiclient"
	"github.com/archiveworks/chatexport/assetcache"
	"github.com/archiveworks/chatexport/domain"
)

// Context is the single-writer-per-pipeline cache described by spec §4.2.
// The orchestrator is the only writer; writers read it only after a
// batch's member resolution has completed, so no locking is required for
// steady-state reads, but the maps are still mutex-guarded because
// populateMember is invoked from up to P concurrent goroutines within a
// batch (spec §5's bounded-parallel resolution).
type Context struct {
	client *apiclient.Client
	assets *assetcache.Store // nil when asset reuse is disabled

	guildID domain.Id

	mu          sync.Mutex
	memberByID  map[domain.Id]*domain.Member // always non-nil once resolved; absent members get a synthesised fallback
	channelByID map[domain.Id]domain.Channel
	roleByID    map[domain.Id]domain.Role

	rolesMu       sync.Mutex
	userRolesByID map[domain.Id][]domain.Role // Tier-2, lazily derived
	userColorByID map[domain.Id]*uint32       // Tier-2, lazily derived

	locale Locale

	shouldDownloadAssets bool
	shouldReuseAssets    bool
	assetsDirPath        string
}

// Options configures a new Context.
type Options struct {
	Client               *apiclient.Client
	Assets               *assetcache.Store
	GuildID              domain.Id
	Locale               string
	UTCNormalize         bool
	ShouldDownloadAssets bool
	ShouldReuseAssets    bool
	AssetsDirPath        string
}

// New builds an empty export context ready for populateChannelsAndRoles.
func New(opts Options) *Context {
	return &Context{
		client:               opts.Client,
		assets:               opts.Assets,
		guildID:              opts.GuildID,
		memberByID:           make(map[domain.Id]*domain.Member),
		channelByID:          make(map[domain.Id]domain.Channel),
		roleByID:             make(map[domain.Id]domain.Role),
		userRolesByID:        make(map[domain.Id][]domain.Role),
		userColorByID:        make(map[domain.Id]*uint32),
		locale:               ResolveLocale(opts.Locale).withUTC(opts.UTCNormalize),
		shouldDownloadAssets: opts.ShouldDownloadAssets,
		shouldReuseAssets:    opts.ShouldReuseAssets,
		assetsDirPath:        opts.AssetsDirPath,
	}
}

// PopulateChannelsAndRoles fills Tier-1's channelByID and roleByID once,
// up front, for the whole guild.
func (c *Context) PopulateChannelsAndRoles(ctx context.Context) error {
	if c.guildID.IsZero() {
		return nil // DM context: no guild channels/roles to enumerate
	}
	for ch, err := range c.client.GetGuildChannels(ctx, c.guildID) {
		if err != nil {
			return fmt.Errorf("exportctx: populate channels: %w", err)
		}
		c.mu.Lock()
		c.channelByID[ch.ID] = ch
		c.mu.Unlock()
	}
	for ch, err := range c.client.GetGuildThreads(ctx, c.guildID) {
		if err != nil {
			return fmt.Errorf("exportctx: populate threads: %w", err)
		}
		c.mu.Lock()
		c.channelByID[ch.ID] = ch
		c.mu.Unlock()
	}
	for r, err := range c.client.GetGuildRoles(ctx, c.guildID) {
		if err != nil {
			return fmt.Errorf("exportctx: populate roles: %w", err)
		}
		c.mu.Lock()
		c.roleByID[r.ID] = r
		c.mu.Unlock()
	}
	return nil
}

// ChannelByID returns a Tier-1 cached channel.
func (c *Context) ChannelByID(id domain.Id) (domain.Channel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channelByID[id]
	return ch, ok
}

// RoleByID returns a Tier-1 cached role.
func (c *Context) RoleByID(id domain.Id) (domain.Role, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.roleByID[id]
	return r, ok
}

// PopulateMember resolves one user into a guild member, consulting the
// cache first. On a cache miss it fetches via TryGetGuildMember; when
// that returns nil (member left the guild, a 404) it falls back to
// fallbackUser, re-fetching the user directly if the caller didn't
// already have it, and synthesises a departed-member record via
// domain.OfUser. The synthesised result is cached too, so a departed
// member is never re-queried.
func (c *Context) PopulateMember(ctx context.Context, userID domain.Id, fallbackUser domain.User) (*domain.Member, error) {
	c.mu.Lock()
	if m, ok := c.memberByID[userID]; ok {
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	var member *domain.Member
	if !c.guildID.IsZero() {
		m, err := c.client.TryGetGuildMember(ctx, c.guildID, userID)
		if err != nil {
			return nil, fmt.Errorf("exportctx: populate member %s: %w", userID.String(), err)
		}
		member = m
	}
	if member == nil {
		u := fallbackUser
		if u.ID.IsZero() || u.ID != userID {
			fetched, err := c.client.TryGetUser(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("exportctx: populate member %s: %w", userID.String(), err)
			}
			if fetched != nil {
				u = *fetched
			}
		}
		fallback := domain.OfUser(u, c.guildID)
		member = &fallback
	}

	c.mu.Lock()
	c.memberByID[userID] = member
	c.mu.Unlock()
	return member, nil
}

// PopulateMembers resolves a batch of referenced users with up to
// parallelism concurrent lookups in flight, returning once every
// resolution has completed (spec §5's B=50/P=10 batching policy; B is
// the caller's concern, this only bounds P).
func (c *Context) PopulateMembers(ctx context.Context, users []domain.User, parallelism int) error {
	if parallelism < 1 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	errCh := make(chan error, len(users))

	for _, u := range users {
		u := u
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := c.PopulateMember(ctx, u.ID, u); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// UserRoles returns the member's roles ordered by position descending
// (Tier-2, derived and cached lazily on first access).
func (c *Context) UserRoles(userID domain.Id) []domain.Role {
	c.rolesMu.Lock()
	if cached, ok := c.userRolesByID[userID]; ok {
		c.rolesMu.Unlock()
		return cached
	}
	c.rolesMu.Unlock()

	c.mu.Lock()
	member := c.memberByID[userID]
	var roles []domain.Role
	if member != nil {
		for _, rid := range member.RoleIDs {
			if r, ok := c.roleByID[rid]; ok {
				roles = append(roles, r)
			}
		}
	}
	c.mu.Unlock()

	sort.SliceStable(roles, func(i, j int) bool { return roles[i].Position > roles[j].Position })

	c.rolesMu.Lock()
	c.userRolesByID[userID] = roles
	c.rolesMu.Unlock()
	return roles
}

// UserColor returns the first non-nil colour among the user's roles
// sorted by position descending, or nil if none carries one.
func (c *Context) UserColor(userID domain.Id) *uint32 {
	c.rolesMu.Lock()
	if cached, ok := c.userColorByID[userID]; ok {
		c.rolesMu.Unlock()
		return cached
	}
	c.rolesMu.Unlock()

	var color *uint32
	for _, r := range c.UserRoles(userID) {
		if r.Color != nil {
			color = r.Color
			break
		}
	}

	c.rolesMu.Lock()
	c.userColorByID[userID] = color
	c.rolesMu.Unlock()
	return color
}

// ResolveAssetURL maps an asset URL to the path it is stored under. It
// returns the original URL unchanged when download is disabled or the
// URL has no usable file name. Otherwise it returns the reuse cache's
// path on a hit, or else the path derived from the URL's file name under
// assetsDirPath, recording that path in the reuse cache when reuse is
// enabled. The asset itself is not fetched.
func (c *Context) ResolveAssetURL(ctx context.Context, rawURL string) string {
	if !c.shouldDownloadAssets {
		return rawURL
	}
	if c.shouldReuseAssets && c.assets != nil {
		if path, ok := c.assets.Lookup(ctx, rawURL); ok {
			return path
		}
	}
	localPath := c.localAssetPath(rawURL)
	if c.shouldReuseAssets && c.assets != nil {
		_ = c.assets.Record(ctx, rawURL, localPath, 0)
	}
	return localPath
}

func (c *Context) localAssetPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	name := filepath.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return rawURL
	}
	return filepath.Join(c.assetsDirPath, sanitizeSegment(name))
}

// UserName implements markdown.Resolver, answering mention lookups from
// the member cache (falling back to "not found" if the user was never
// referenced in this export).
func (c *Context) UserName(id string) (string, bool) {
	uid, err := domain.ParseId(id)
	if err != nil {
		return "", false
	}
	c.mu.Lock()
	m, ok := c.memberByID[uid]
	c.mu.Unlock()
	if !ok || m == nil {
		return "", false
	}
	return m.DisplayName(), true
}

// ChannelName implements markdown.Resolver from the Tier-1 channel cache.
func (c *Context) ChannelName(id string) (string, bool) {
	cid, err := domain.ParseId(id)
	if err != nil {
		return "", false
	}
	ch, ok := c.ChannelByID(cid)
	if !ok {
		return "", false
	}
	return ch.Name, true
}

// RoleName implements markdown.Resolver from the Tier-1 role cache.
func (c *Context) RoleName(id string) (string, bool) {
	rid, err := domain.ParseId(id)
	if err != nil {
		return "", false
	}
	r, ok := c.RoleByID(rid)
	if !ok {
		return "", false
	}
	return r.Name, true
}

// FormatTimestamp renders t using the context's configured locale.
func (c *Context) FormatTimestamp(t time.Time, code rune) string {
	return c.locale.FormatTimestamp(t, code)
}

func sanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
