package writer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/exportctx"
	"github.com/archiveworks/chatexport/markdown"
)

// JSON accumulates the whole transcript in memory and emits one
// pretty-printed object on Postamble, matching spec.md's
// {guild, channel, dateRange, exportedAt, messages[], messageCount} shape.
type JSON struct {
	Ctx  *exportctx.Context
	Meta Metadata

	messages []jsonMessage
}

type jsonDocument struct {
	Guild        jsonGuild     `json:"guild"`
	Channel      jsonChannel   `json:"channel"`
	DateRange    jsonDateRange `json:"dateRange"`
	ExportedAt   time.Time     `json:"exportedAt"`
	Messages     []jsonMessage `json:"messages"`
	MessageCount int           `json:"messageCount"`
}

type jsonGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type jsonChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type jsonDateRange struct {
	After  *string `json:"after,omitempty"`
	Before *string `json:"before,omitempty"`
}

type jsonUser struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Bot         bool      `json:"bot"`
	Color       *uint32   `json:"color,omitempty"`
	AvatarURL   string    `json:"avatarUrl"`
	Roles       []jsonRole `json:"roles,omitempty"`
}

type jsonRole struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Color *uint32 `json:"color,omitempty"`
}

type jsonAttachment struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Size     int    `json:"size"`
}

type jsonEmbedMedia struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type jsonEmbed struct {
	Type        string          `json:"type,omitempty"`
	URL         string          `json:"url,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Image       *jsonEmbedMedia `json:"image,omitempty"`
	Thumbnail   *jsonEmbedMedia `json:"thumbnail,omitempty"`
}

type jsonSticker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type jsonReaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

type jsonReference struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
	GuildID   string `json:"guildId,omitempty"`
}

type jsonInteraction struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	User jsonUser `json:"user"`
}

type jsonMessage struct {
	ID                 string           `json:"id"`
	Type               string           `json:"type"`
	Timestamp          time.Time        `json:"timestamp"`
	EditedTimestamp    *time.Time       `json:"editedTimestamp,omitempty"`
	CallEndedTimestamp *time.Time       `json:"callEndedTimestamp,omitempty"`
	Pinned             bool             `json:"pinned"`
	Content            string           `json:"content"`
	Author             jsonUser         `json:"author"`
	Attachments        []jsonAttachment `json:"attachments,omitempty"`
	Embeds             []jsonEmbed      `json:"embeds,omitempty"`
	Stickers           []jsonSticker    `json:"stickers,omitempty"`
	Reactions          []jsonReaction   `json:"reactions,omitempty"`
	Mentions           []jsonUser       `json:"mentions,omitempty"`
	Reference          *jsonReference   `json:"reference,omitempty"`
	Interaction        *jsonInteraction `json:"interaction,omitempty"`
	Emoji              []string         `json:"emoji,omitempty"`
}

func (w *JSON) Preamble(io.Writer) error { return nil }

func (w *JSON) WriteMessage(_ io.Writer, m domain.Message) error {
	w.messages = append(w.messages, w.toJSONMessage(m))
	return nil
}

func (w *JSON) Postamble(out io.Writer) error {
	doc := jsonDocument{
		Guild:      jsonGuild{ID: w.Meta.Guild.ID.String(), Name: w.Meta.Guild.Name},
		Channel:    jsonChannel{ID: w.Meta.Channel.ID.String(), Name: w.Meta.Channel.Name},
		DateRange:  dateRangeOf(w.Meta),
		ExportedAt: w.Meta.ExportedAt,
		Messages:   w.messages,
		MessageCount: len(w.messages),
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func dateRangeOf(meta Metadata) jsonDateRange {
	var dr jsonDateRange
	if meta.After != nil {
		s := meta.After.String()
		dr.After = &s
	}
	if meta.Before != nil {
		s := meta.Before.String()
		dr.Before = &s
	}
	return dr
}

func (w *JSON) toJSONMessage(m domain.Message) jsonMessage {
	out := jsonMessage{
		ID:                 m.ID.String(),
		Type:               messageKindName(m.Kind),
		Timestamp:          m.Timestamp,
		EditedTimestamp:    m.EditedTimestamp,
		CallEndedTimestamp: m.CallEndedTimestamp,
		Pinned:             m.Pinned,
		Content:            renderContent(w.Ctx, m, markdown.ProfileFull),
		Author:             w.toJSONUser(m.Author),
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, jsonAttachment{
			ID: a.ID.String(), URL: a.URL, FileName: a.FileName, Size: a.Size,
		})
	}
	for _, e := range m.Embeds {
		out.Embeds = append(out.Embeds, toJSONEmbed(e))
	}
	for _, s := range m.Stickers {
		out.Stickers = append(out.Stickers, jsonSticker{ID: s.ID.String(), Name: s.Name, URL: s.URL})
	}
	for _, r := range m.Reactions {
		out.Reactions = append(out.Reactions, jsonReaction{Emoji: r.Emoji.Code(), Count: r.Count})
	}
	for _, u := range m.Mentions {
		out.Mentions = append(out.Mentions, w.toJSONUser(u))
	}
	if m.Reference != nil {
		out.Reference = &jsonReference{
			MessageID: m.Reference.MessageID.String(),
			ChannelID: m.Reference.ChannelID.String(),
			GuildID:   m.Reference.GuildID.String(),
		}
	}
	if m.Interaction != nil {
		out.Interaction = &jsonInteraction{
			ID:   m.Interaction.ID.String(),
			Name: m.Interaction.Name,
			User: w.toJSONUser(m.Interaction.User),
		}
	}
	out.Emoji = dedupedInlineEmoji(m.Content)
	return out
}

func (w *JSON) toJSONUser(u domain.User) jsonUser {
	ju := jsonUser{
		ID:          u.ID.String(),
		Name:        u.Name,
		DisplayName: u.DisplayName,
		Bot:         u.Bot,
		AvatarURL:   u.AvatarURL(),
	}
	if w.Ctx != nil {
		ju.Color = w.Ctx.UserColor(u.ID)
		for _, r := range w.Ctx.UserRoles(u.ID) {
			ju.Roles = append(ju.Roles, jsonRole{ID: r.ID.String(), Name: r.Name, Color: r.Color})
		}
	}
	return ju
}

func toJSONEmbed(e domain.Embed) jsonEmbed {
	je := jsonEmbed{Type: e.Type, URL: e.URL, Title: e.Title, Description: e.Description}
	if e.Image != nil {
		je.Image = &jsonEmbedMedia{URL: e.Image.URL, Width: e.Image.Width, Height: e.Image.Height}
	}
	if e.Thumbnail != nil {
		je.Thumbnail = &jsonEmbedMedia{URL: e.Thumbnail.URL, Width: e.Thumbnail.Width, Height: e.Thumbnail.Height}
	}
	return je
}

// dedupedInlineEmoji extracts the distinct custom/standard emoji tokens
// referenced in raw content, in first-seen order.
func dedupedInlineEmoji(content string) []string {
	nodes := markdown.Parse(content, markdown.ProfileFull)
	seen := map[string]bool{}
	var out []string
	var walk func([]markdown.Node)
	walk = func(nodes []markdown.Node) {
		for _, n := range nodes {
			if n.Kind == markdown.KindEmoji {
				key := n.EmojiName
				if n.EmojiID != "" {
					key = n.EmojiID
				}
				if !seen[key] {
					seen[key] = true
					out = append(out, n.EmojiName)
				}
			}
			if n.Kind == markdown.KindFormatting {
				walk(n.Children)
			}
		}
	}
	walk(nodes)
	return out
}

var messageKindNames = map[domain.MessageKind]string{
	domain.KindDefault:                                  "default",
	domain.KindRecipientAdd:                              "recipientAdd",
	domain.KindRecipientRemove:                           "recipientRemove",
	domain.KindCall:                                      "call",
	domain.KindChannelNameChange:                         "channelNameChange",
	domain.KindChannelIconChange:                         "channelIconChange",
	domain.KindChannelPinnedMessage:                      "channelPinnedMessage",
	domain.KindGuildMemberJoin:                           "guildMemberJoin",
	domain.KindUserPremiumGuildSubscription:              "guildBoost",
	domain.KindUserPremiumGuildSubscriptionTier1:         "guildBoostTier1",
	domain.KindUserPremiumGuildSubscriptionTier2:         "guildBoostTier2",
	domain.KindUserPremiumGuildSubscriptionTier3:         "guildBoostTier3",
	domain.KindChannelFollowAdd:                          "channelFollowAdd",
	domain.KindGuildDiscoveryDisqualified:                "guildDiscoveryDisqualified",
	domain.KindGuildDiscoveryRequalified:                 "guildDiscoveryRequalified",
	domain.KindGuildDiscoveryGracePeriodInitialWarning:   "guildDiscoveryGracePeriodInitialWarning",
	domain.KindGuildDiscoveryGracePeriodFinalWarning:     "guildDiscoveryGracePeriodFinalWarning",
	domain.KindThreadCreated:                             "threadCreated",
	domain.KindReply:                                     "reply",
	domain.KindChatInputCommand:                          "chatInputCommand",
	domain.KindThreadStarterMessage:                      "threadStarterMessage",
	domain.KindGuildInviteReminder:                       "guildInviteReminder",
	domain.KindContextMenuCommand:                        "contextMenuCommand",
	domain.KindAutoModerationAction:                      "autoModerationAction",
	domain.KindRoleSubscriptionPurchase:                  "roleSubscriptionPurchase",
	domain.KindInteractionPremiumUpsell:                  "interactionPremiumUpsell",
	domain.KindStageStart:                                "stageStart",
	domain.KindStageEnd:                                  "stageEnd",
	domain.KindStageSpeaker:                              "stageSpeaker",
	domain.KindStageTopic:                                "stageTopic",
	domain.KindGuildApplicationPremiumSubscription:       "guildApplicationPremiumSubscription",
}

func messageKindName(k domain.MessageKind) string {
	if name, ok := messageKindNames[k]; ok {
		return name
	}
	return "unknown"
}
