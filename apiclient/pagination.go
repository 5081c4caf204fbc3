package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/ratebudget"
)

// Seq is a lazy, single-pass, non-restartable sequence of (value, error)
// pairs, consumed with `for v, err := range seq { ... }`. The producer
// stops as soon as the consumer's range body returns false (via break).
type Seq[T any] func(yield func(T, error) bool)

// GetUserGuilds streams every guild the authenticated user belongs to.
func (c *Client) GetUserGuilds(ctx context.Context) Seq[domain.Guild] {
	return func(yield func(domain.Guild, error) bool) {
		after := ""
		for {
			var page []discordgo.Guild
			path := "/users/@me/guilds?limit=200"
			if after != "" {
				path += "&after=" + after
			}
			if _, err := c.request(ctx, http.MethodGet, path, nil, &page); err != nil {
				yield(domain.Guild{}, fatalf("GetUserGuilds", "%w", err))
				return
			}
			if len(page) == 0 {
				return
			}
			for i := range page {
				g, err := domain.FromGuild(&page[i])
				if err != nil {
					if !yield(domain.Guild{}, err) {
						return
					}
					continue
				}
				if !yield(g, nil) {
					return
				}
			}
			after = page[len(page)-1].ID
			if len(page) < 200 {
				return
			}
		}
	}
}

// GetGuildChannels streams every channel in a guild, resolving parent
// links so two-level category -> channel forests are connected.
func (c *Client) GetGuildChannels(ctx context.Context, guildID domain.Id) Seq[domain.Channel] {
	return func(yield func(domain.Channel, error) bool) {
		var wire []discordgo.Channel
		if _, err := c.request(ctx, http.MethodGet, "/guilds/"+guildID.String()+"/channels", nil, &wire); err != nil {
			yield(domain.Channel{}, fatalf("GetGuildChannels", "%w", err))
			return
		}
		byID := make(map[string]domain.Channel, len(wire))
		// First pass: convert without parent links.
		converted := make([]domain.Channel, 0, len(wire))
		for i := range wire {
			ch, err := domain.FromChannel(&wire[i], nil)
			if err != nil {
				continue
			}
			converted = append(converted, ch)
			byID[wire[i].ID] = ch
		}
		for i := range wire {
			if wire[i].ParentID == "" {
				continue
			}
			if parent, ok := byID[wire[i].ParentID]; ok {
				converted[i].Parent = &parent
			}
		}
		for _, ch := range converted {
			if !yield(ch, nil) {
				return
			}
		}
	}
}

// GetGuildThreads streams active threads in a guild.
func (c *Client) GetGuildThreads(ctx context.Context, guildID domain.Id) Seq[domain.Channel] {
	return func(yield func(domain.Channel, error) bool) {
		var page struct {
			Threads []discordgo.Channel `json:"threads"`
		}
		if _, err := c.request(ctx, http.MethodGet, "/guilds/"+guildID.String()+"/threads/active", nil, &page); err != nil {
			yield(domain.Channel{}, fatalf("GetGuildThreads", "%w", err))
			return
		}
		for i := range page.Threads {
			ch, err := domain.FromChannel(&page.Threads[i], nil)
			if err != nil {
				continue
			}
			if !yield(ch, nil) {
				return
			}
		}
	}
}

// GetGuildRoles streams every role defined in a guild.
func (c *Client) GetGuildRoles(ctx context.Context, guildID domain.Id) Seq[domain.Role] {
	return func(yield func(domain.Role, error) bool) {
		var wire []discordgo.Role
		if _, err := c.request(ctx, http.MethodGet, "/guilds/"+guildID.String()+"/roles", nil, &wire); err != nil {
			yield(domain.Role{}, fatalf("GetGuildRoles", "%w", err))
			return
		}
		for i := range wire {
			r, err := domain.FromRole(&wire[i])
			if err != nil {
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// GetMessageReactions streams the users who reacted with a given emoji code.
func (c *Client) GetMessageReactions(ctx context.Context, channelID, messageID domain.Id, emojiCode string) Seq[domain.User] {
	return func(yield func(domain.User, error) bool) {
		after := ""
		for {
			path := "/channels/" + channelID.String() + "/messages/" + messageID.String() + "/reactions/" + emojiCode + "?limit=100"
			if after != "" {
				path += "&after=" + after
			}
			var page []discordgo.User
			if _, err := c.request(ctx, http.MethodGet, path, nil, &page); err != nil {
				yield(domain.User{}, fatalf("GetMessageReactions", "%w", err))
				return
			}
			if len(page) == 0 {
				return
			}
			for i := range page {
				u, err := domain.FromUser(&page[i])
				if err != nil {
					continue
				}
				if !yield(u, nil) {
					return
				}
			}
			after = page[len(page)-1].ID
			if len(page) < 100 {
				return
			}
		}
	}
}

// GetMessages streams messages in channelID ascending by id, within the
// optional [after, before) bound. Pages are requested newest-first per the
// upstream API and reversed locally to produce the ascending stream. The
// cursor advances to the id of the last emitted item each page; a short
// page (< pageSize) terminates the stream.
func (c *Client) GetMessages(ctx context.Context, channelID domain.Id, after, before *domain.Id) Seq[domain.Message] {
	return func(yield func(domain.Message, error) bool) {
		cursor := domain.Id(0)
		if after != nil {
			cursor = *after
		}
		for {
			var wire []discordgo.Message
			path := fmt.Sprintf("/channels/%s/messages?limit=%d&after=%s", channelID.String(), pageSize, cursor.String())
			if before != nil {
				path = fmt.Sprintf("/channels/%s/messages?limit=%d&after=%s&before=%s", channelID.String(), pageSize, cursor.String(), before.String())
			}
			if _, err := c.request(ctx, http.MethodGet, path, nil, &wire); err != nil {
				yield(domain.Message{}, fatalf("GetMessages", "%w", err))
				return
			}
			if len(wire) == 0 {
				return
			}

			// Upstream returns newest-first; reverse for ascending order.
			reverseMessages(wire)

			if c.tokenKind == ratebudget.TokenBot && !c.hasContentIntent() && allContentEmpty(wire) {
				yield(domain.Message{}, ErrMissingContentIntent)
				return
			}

			for i := range wire {
				m, err := domain.FromMessage(&wire[i])
				if err != nil {
					if !yield(domain.Message{}, err) {
						return
					}
					continue
				}
				if !yield(m, nil) {
					return
				}
			}

			last, err := domain.ParseId(wire[len(wire)-1].ID)
			if err != nil {
				return
			}
			cursor = last
			if len(wire) < pageSize {
				return
			}
		}
	}
}

func reverseMessages(m []discordgo.Message) {
	for i, j := 0, len(m)-1; i < j; i, j = i+1, j-1 {
		m[i], m[j] = m[j], m[i]
	}
}

func allContentEmpty(m []discordgo.Message) bool {
	for i := range m {
		if m[i].Content != "" {
			return false
		}
	}
	return true
}
