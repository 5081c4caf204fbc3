package domain

import "strings"

// ChannelKind enumerates the channel types the export engine understands.
type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelVoice
	ChannelCategory
	ChannelThreadPublic
	ChannelThreadPrivate
	ChannelThreadNews
	ChannelStage
	ChannelForum
	ChannelDM
	ChannelGroupDM
)

// Channel is a text-bearing (or text-adjacent) location messages were sent in.
// Parent forms a forest of at most two levels: category -> channel -> thread.
type Channel struct {
	ID            Id
	Kind          ChannelKind
	GuildID       Id
	Parent        *Channel
	Name          string
	Position      int
	Topic         string
	Archived      bool
	LastMessageID *Id
}

// IsEmpty reports whether the channel has never held a message.
func (c Channel) IsEmpty() bool { return c.LastMessageID == nil }

// MayHaveMessagesAfter reports whether messages could exist strictly after cursor.
func (c Channel) MayHaveMessagesAfter(cursor Id) bool {
	return !c.IsEmpty() && cursor.Less(*c.LastMessageID)
}

// MayHaveMessagesBefore reports whether messages could exist strictly before cursor.
func (c Channel) MayHaveMessagesBefore(cursor Id) bool {
	return !c.IsEmpty() && c.ID.Less(cursor)
}

// HierarchicalName joins the channel's ancestors and its own name with " / ".
func (c Channel) HierarchicalName() string {
	var parts []string
	for p := c.Parent; p != nil; p = p.Parent {
		parts = append([]string{p.Name}, parts...)
	}
	parts = append(parts, c.Name)
	return strings.Join(parts, " / ")
}
