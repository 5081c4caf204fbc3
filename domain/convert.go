package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// FromUser converts a wire user into the immutable User value object. It is
// the single point of translation for user JSON: unknown wire fields are
// ignored, missing optional fields yield the zero value.
func FromUser(w *discordgo.User) (User, error) {
	if w == nil {
		return User{}, fmt.Errorf("domain: nil user")
	}
	id, err := ParseId(w.ID)
	if err != nil {
		return User{}, fmt.Errorf("domain: parse user id %q: %w", w.ID, err)
	}
	var disc *int
	if w.Discriminator != "" && w.Discriminator != "0" {
		var n int
		if _, scanErr := fmt.Sscanf(w.Discriminator, "%d", &n); scanErr == nil {
			disc = NormalizeDiscriminator(n)
		}
	}
	display := w.GlobalName
	if display == "" {
		display = w.Username
	}
	avatar := ""
	if w.Avatar != "" {
		ext := "png"
		if len(w.Avatar) > 2 && w.Avatar[:2] == "a_" {
			ext = "gif"
		}
		avatar = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.%s", w.ID, w.Avatar, ext)
	}
	return User{
		ID:            id,
		Name:          w.Username,
		DisplayName:   display,
		Bot:           w.Bot,
		Discriminator: disc,
		AvatarURLRaw:  avatar,
	}, nil
}

// FromGuild converts a wire guild.
func FromGuild(w *discordgo.Guild) (Guild, error) {
	if w == nil {
		return Guild{}, fmt.Errorf("domain: nil guild")
	}
	id, err := ParseId(w.ID)
	if err != nil {
		return Guild{}, fmt.Errorf("domain: parse guild id %q: %w", w.ID, err)
	}
	icon := ""
	if w.Icon != "" {
		icon = fmt.Sprintf("https://cdn.discordapp.com/icons/%s/%s.png", w.ID, w.Icon)
	}
	return Guild{ID: id, Name: w.Name, IconURL: icon}, nil
}

var channelKindByWire = map[discordgo.ChannelType]ChannelKind{
	discordgo.ChannelTypeGuildText:          ChannelText,
	discordgo.ChannelTypeGuildVoice:         ChannelVoice,
	discordgo.ChannelTypeGuildCategory:      ChannelCategory,
	discordgo.ChannelTypeGuildPublicThread:  ChannelThreadPublic,
	discordgo.ChannelTypeGuildPrivateThread: ChannelThreadPrivate,
	discordgo.ChannelTypeGuildNewsThread:    ChannelThreadNews,
	discordgo.ChannelTypeGuildStageVoice:    ChannelStage,
	discordgo.ChannelTypeGuildForum:         ChannelForum,
	discordgo.ChannelTypeDM:                 ChannelDM,
	discordgo.ChannelTypeGroupDM:            ChannelGroupDM,
}

// FromChannel converts a wire channel. parent, if non-nil, is linked as the
// returned channel's Parent (the caller resolves the parent lookup, since
// that requires the guild's channel cache).
func FromChannel(w *discordgo.Channel, parent *Channel) (Channel, error) {
	if w == nil {
		return Channel{}, fmt.Errorf("domain: nil channel")
	}
	id, err := ParseId(w.ID)
	if err != nil {
		return Channel{}, fmt.Errorf("domain: parse channel id %q: %w", w.ID, err)
	}
	var guildID Id
	if w.GuildID != "" {
		guildID, err = ParseId(w.GuildID)
		if err != nil {
			return Channel{}, fmt.Errorf("domain: parse guild id %q: %w", w.GuildID, err)
		}
	}
	kind, ok := channelKindByWire[w.Type]
	if !ok {
		kind = ChannelText
	}
	var lastMessageID *Id
	if w.LastMessageID != "" {
		lm, err := ParseId(w.LastMessageID)
		if err == nil {
			lastMessageID = &lm
		}
	}
	archived := false
	if w.ThreadMetadata != nil {
		archived = w.ThreadMetadata.Archived
	}
	return Channel{
		ID:            id,
		Kind:          kind,
		GuildID:       guildID,
		Parent:        parent,
		Name:          w.Name,
		Position:      w.Position,
		Topic:         w.Topic,
		Archived:      archived,
		LastMessageID: lastMessageID,
	}, nil
}

// FromRole converts a wire role.
func FromRole(w *discordgo.Role) (Role, error) {
	if w == nil {
		return Role{}, fmt.Errorf("domain: nil role")
	}
	id, err := ParseId(w.ID)
	if err != nil {
		return Role{}, fmt.Errorf("domain: parse role id %q: %w", w.ID, err)
	}
	return Role{ID: id, Name: w.Name, Color: NormalizeColor(w.Color), Position: w.Position}, nil
}

// FromMember converts a wire member. The member's embedded user must
// already be present on the wire struct (the upstream API always inlines it).
func FromMember(w *discordgo.Member, guildID Id) (Member, error) {
	if w == nil || w.User == nil {
		return Member{}, fmt.Errorf("domain: nil member or user")
	}
	u, err := FromUser(w.User)
	if err != nil {
		return Member{}, err
	}
	roleIDs := make([]Id, 0, len(w.Roles))
	for _, r := range w.Roles {
		id, err := ParseId(r)
		if err != nil {
			continue
		}
		roleIDs = append(roleIDs, id)
	}
	avatar := ""
	if w.Avatar != "" {
		avatar = fmt.Sprintf("https://cdn.discordapp.com/guilds/%s/users/%s/avatars/%s.png", guildID.String(), w.User.ID, w.Avatar)
	}
	return Member{
		User:         u,
		GuildID:      guildID,
		Nickname:     w.Nick,
		RoleIDs:      roleIDs,
		AvatarURLRaw: avatar,
	}, nil
}

// FromAttachment converts a wire attachment.
func FromAttachment(w *discordgo.MessageAttachment) (Attachment, error) {
	id, err := ParseId(w.ID)
	if err != nil {
		return Attachment{}, fmt.Errorf("domain: parse attachment id %q: %w", w.ID, err)
	}
	a := Attachment{ID: id, URL: w.URL, FileName: w.Filename, Size: w.Size}
	if w.Width != 0 {
		v := w.Width
		a.Width = &v
	}
	if w.Height != 0 {
		v := w.Height
		a.Height = &v
	}
	return a, nil
}

// FromEmbed converts a single wire embed (normalisation across consecutive
// embeds happens in FromMessage, after every embed has been converted).
func FromEmbed(w *discordgo.MessageEmbed) Embed {
	e := Embed{Type: string(w.Type), URL: w.URL, Title: w.Title, Description: w.Description}
	if w.Image != nil {
		e.Image = &EmbedMedia{URL: w.Image.URL, Width: w.Image.Width, Height: w.Image.Height}
	}
	if w.Thumbnail != nil {
		e.Thumbnail = &EmbedMedia{URL: w.Thumbnail.URL, Width: w.Thumbnail.Width, Height: w.Thumbnail.Height}
	}
	return e
}

// FromSticker converts a wire sticker reference.
func FromSticker(w *discordgo.Sticker) (Sticker, error) {
	id, err := ParseId(w.ID)
	if err != nil {
		return Sticker{}, fmt.Errorf("domain: parse sticker id %q: %w", w.ID, err)
	}
	url := fmt.Sprintf("https://media.discordapp.net/stickers/%s.png", w.ID)
	return Sticker{ID: id, Name: w.Name, URL: url}, nil
}

// FromEmoji converts a wire emoji (standard or custom).
func FromEmoji(w *discordgo.Emoji) Emoji {
	e := Emoji{Name: w.Name, Animated: w.Animated}
	if w.ID != "" {
		if id, err := ParseId(w.ID); err == nil {
			e.ID = &id
		}
	}
	return e
}

// FromReactions converts the wire per-emoji reaction summaries.
func FromReactions(ws []*discordgo.MessageReactions) []Reaction {
	out := make([]Reaction, 0, len(ws))
	for _, w := range ws {
		if w == nil || w.Emoji == nil {
			continue
		}
		out = append(out, Reaction{Emoji: FromEmoji(w.Emoji), Count: w.Count})
	}
	return out
}

var messageKindByWire = map[discordgo.MessageType]MessageKind{
	discordgo.MessageTypeDefault:                               KindDefault,
	discordgo.MessageTypeRecipientAdd:                          KindRecipientAdd,
	discordgo.MessageTypeRecipientRemove:                       KindRecipientRemove,
	discordgo.MessageTypeCall:                                  KindCall,
	discordgo.MessageTypeChannelNameChange:                     KindChannelNameChange,
	discordgo.MessageTypeChannelIconChange:                     KindChannelIconChange,
	discordgo.MessageTypeChannelPinnedMessage:                  KindChannelPinnedMessage,
	discordgo.MessageTypeGuildMemberJoin:                       KindGuildMemberJoin,
	discordgo.MessageTypeUserPremiumGuildSubscription:          KindUserPremiumGuildSubscription,
	discordgo.MessageTypeUserPremiumGuildSubscriptionTierOne:   KindUserPremiumGuildSubscriptionTier1,
	discordgo.MessageTypeUserPremiumGuildSubscriptionTierTwo:   KindUserPremiumGuildSubscriptionTier2,
	discordgo.MessageTypeUserPremiumGuildSubscriptionTierThree: KindUserPremiumGuildSubscriptionTier3,
	discordgo.MessageTypeChannelFollowAdd:                      KindChannelFollowAdd,
	discordgo.MessageTypeGuildDiscoveryDisqualified:            KindGuildDiscoveryDisqualified,
	discordgo.MessageTypeGuildDiscoveryRequalified:             KindGuildDiscoveryRequalified,
	discordgo.MessageTypeThreadCreated:                         KindThreadCreated,
	discordgo.MessageTypeReply:                                 KindReply,
	discordgo.MessageTypeChatInputCommand:                      KindChatInputCommand,
	discordgo.MessageTypeThreadStarterMessage:                  KindThreadStarterMessage,
	discordgo.MessageTypeGuildInviteReminder:                   KindGuildInviteReminder,
	discordgo.MessageTypeContextMenuCommand:                    KindContextMenuCommand,
	discordgo.MessageTypeAutoModerationAction:                  KindAutoModerationAction,
	discordgo.MessageTypeRoleSubscriptionPurchase:              KindRoleSubscriptionPurchase,
	discordgo.MessageTypeInteractionPremiumUpsell:              KindInteractionPremiumUpsell,
	discordgo.MessageTypeStageStart:                            KindStageStart,
	discordgo.MessageTypeStageEnd:                              KindStageEnd,
	discordgo.MessageTypeStageSpeaker:                          KindStageSpeaker,
	discordgo.MessageTypeStageTopic:                            KindStageTopic,
	discordgo.MessageTypeGuildApplicationPremiumSubscription:   KindGuildApplicationPremiumSubscription,
}

// FromMessage converts a wire message, including its at-most-one-level
// referenced message, and applies embed normalisation once.
func FromMessage(w *discordgo.Message) (Message, error) {
	if w == nil {
		return Message{}, fmt.Errorf("domain: nil message")
	}
	id, err := ParseId(w.ID)
	if err != nil {
		return Message{}, fmt.Errorf("domain: parse message id %q: %w", w.ID, err)
	}
	channelID, _ := ParseId(w.ChannelID)

	author, err := FromUser(w.Author)
	if err != nil {
		return Message{}, fmt.Errorf("domain: message %s author: %w", w.ID, err)
	}

	ts, err := parseWireTime(w.Timestamp)
	if err != nil {
		return Message{}, fmt.Errorf("domain: message %s timestamp: %w", w.ID, err)
	}

	m := Message{
		ID:        id,
		ChannelID: channelID,
		Kind:      messageKindByWire[w.Type],
		Flags:     MessageFlags(w.Flags),
		Author:    author,
		Timestamp: ts,
		Pinned:    w.Pinned,
		Content:   w.Content,
	}

	if w.EditedTimestamp != nil {
		m.EditedTimestamp = w.EditedTimestamp
	}
	if w.Call != nil && w.Call.EndedTimestamp != nil {
		m.CallEndedTimestamp = w.Call.EndedTimestamp
	}

	for _, a := range w.Attachments {
		att, err := FromAttachment(a)
		if err != nil {
			continue
		}
		m.Attachments = append(m.Attachments, att)
	}
	var embeds []Embed
	for _, e := range w.Embeds {
		embeds = append(embeds, FromEmbed(e))
	}
	m.Embeds = NormalizeEmbeds(embeds)

	for _, s := range w.StickerItems {
		st, err := FromSticker(s)
		if err != nil {
			continue
		}
		m.Stickers = append(m.Stickers, st)
	}
	m.Reactions = FromReactions(w.Reactions)

	for _, mu := range w.Mentions {
		u, err := FromUser(mu)
		if err != nil {
			continue
		}
		m.Mentions = append(m.Mentions, u)
	}

	if w.MessageReference != nil {
		ref := &MessageReference{}
		if v, err := ParseId(w.MessageReference.MessageID); err == nil {
			ref.MessageID = v
		}
		if v, err := ParseId(w.MessageReference.ChannelID); err == nil {
			ref.ChannelID = v
		}
		if v, err := ParseId(w.MessageReference.GuildID); err == nil {
			ref.GuildID = v
		}
		m.Reference = ref
	}
	if w.ReferencedMessage != nil {
		// Treat chain depth as 1: never recurse into the referenced
		// message's own ReferencedMessage.
		w.ReferencedMessage.ReferencedMessage = nil
		rm, err := FromMessage(w.ReferencedMessage)
		if err == nil {
			m.ReferencedMessage = &rm
		}
	}
	if w.Interaction != nil {
		iu, err := FromUser(w.Interaction.User)
		if err == nil {
			iid, _ := ParseId(w.Interaction.ID)
			m.Interaction = &Interaction{ID: iid, Name: w.Interaction.Name, User: iu}
		}
	}

	return m, nil
}

func parseWireTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return time.Parse(time.RFC3339, s)
}
