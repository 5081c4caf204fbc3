package domain

import (
	"strings"
	"time"
)

// MessageKind enumerates the upstream message types. Values 1..18 are
// system notifications; the remainder are user content.
type MessageKind int

const (
	KindDefault MessageKind = iota
	KindRecipientAdd
	KindRecipientRemove
	KindCall
	KindChannelNameChange
	KindChannelIconChange
	KindChannelPinnedMessage
	KindGuildMemberJoin
	KindUserPremiumGuildSubscription
	KindUserPremiumGuildSubscriptionTier1
	KindUserPremiumGuildSubscriptionTier2
	KindUserPremiumGuildSubscriptionTier3
	KindChannelFollowAdd
	_ // 13: reserved upstream
	KindGuildDiscoveryDisqualified
	KindGuildDiscoveryRequalified
	KindGuildDiscoveryGracePeriodInitialWarning
	KindGuildDiscoveryGracePeriodFinalWarning
	KindThreadCreated
	KindReply
	KindChatInputCommand
	KindThreadStarterMessage
	KindGuildInviteReminder
	KindContextMenuCommand
	KindAutoModerationAction
	KindRoleSubscriptionPurchase
	KindInteractionPremiumUpsell
	KindStageStart
	KindStageEnd
	KindStageSpeaker
	KindStageTopic
	KindGuildApplicationPremiumSubscription
)

// isSystemNotificationKind reports whether k falls in the upstream's
// reserved 1..18 system-notification range.
func isSystemNotificationKind(k MessageKind) bool {
	return k >= 1 && k <= 18
}

// MessageFlags is a bitmask of upstream message flags (crossposted,
// suppress-embeds, ephemeral, …); the export engine treats it opaquely
// except where a specific bit is named by a filter primary.
type MessageFlags uint32

// MessageReference points at the message this one replies to or crossposts.
type MessageReference struct {
	MessageID Id
	ChannelID Id
	GuildID   Id
}

// Interaction records the slash-command invocation that produced a message.
type Interaction struct {
	ID   Id
	Name string
	User User
}

// Message is a single immutable chat message and everything rendered for it.
type Message struct {
	ID                 Id
	ChannelID          Id
	Kind               MessageKind
	Flags              MessageFlags
	Author             User
	Timestamp          time.Time
	EditedTimestamp    *time.Time
	CallEndedTimestamp *time.Time
	Pinned             bool
	Content            string
	Attachments        []Attachment
	Embeds             []Embed
	Stickers           []Sticker
	Reactions          []Reaction
	Mentions           []User
	Reference          *MessageReference
	ReferencedMessage  *Message // at most one level deep; never traversed transitively
	Interaction        *Interaction
}

// IsSystemNotification reports whether the message is a server event
// rather than user-authored content.
func (m Message) IsSystemNotification() bool { return isSystemNotificationKind(m.Kind) }

// IsReply reports whether the message is a direct reply to another message.
func (m Message) IsReply() bool { return m.Kind == KindReply }

// IsReplyLike reports whether the message renders with a "replying to" header:
// either a true reply or a slash-command invocation.
func (m Message) IsReplyLike() bool { return m.IsReply() || m.Interaction != nil }

// IsEmpty reports whether the message carries no renderable content at all.
// Empty messages are still retained and still emit a header when written.
func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == "" &&
		len(m.Attachments) == 0 && len(m.Embeds) == 0 && len(m.Stickers) == 0
}

// ReferencedUsers returns every user this message refers to directly: the
// author, all mentions, the author of a materialised referenced message,
// and the user who invoked the message's interaction, if any.
func (m Message) ReferencedUsers() []User {
	users := make([]User, 0, len(m.Mentions)+2)
	users = append(users, m.Author)
	users = append(users, m.Mentions...)
	if m.ReferencedMessage != nil {
		users = append(users, m.ReferencedMessage.Author)
	}
	if m.Interaction != nil {
		users = append(users, m.Interaction.User)
	}
	return users
}
