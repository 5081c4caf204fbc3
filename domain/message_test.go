package domain

import "testing"

func TestMessageIsEmpty(t *testing.T) {
	m := Message{Content: "  "}
	if !m.IsEmpty() {
		t.Error("blank content with no attachments should be empty")
	}
	m.Attachments = []Attachment{{FileName: "a.png"}}
	if m.IsEmpty() {
		t.Error("message with an attachment should not be empty")
	}
}

func TestIsSystemNotificationRange(t *testing.T) {
	if (Message{Kind: KindDefault}).IsSystemNotification() {
		t.Error("KindDefault (0) must not be a system notification")
	}
	if !(Message{Kind: KindGuildMemberJoin}).IsSystemNotification() {
		t.Error("KindGuildMemberJoin is within 1..18 and must be a system notification")
	}
	if (Message{Kind: KindReply}).IsSystemNotification() {
		t.Error("KindReply (19) must not be a system notification")
	}
}

func TestIsReplyLike(t *testing.T) {
	reply := Message{Kind: KindReply}
	if !reply.IsReplyLike() {
		t.Error("a reply must be reply-like")
	}
	slash := Message{Interaction: &Interaction{Name: "ping"}}
	if !slash.IsReplyLike() {
		t.Error("a slash-command invocation must be reply-like")
	}
	plain := Message{}
	if plain.IsReplyLike() {
		t.Error("a plain message must not be reply-like")
	}
}

func TestReferencedUsersIncludesAuthorMentionsAndReference(t *testing.T) {
	author := User{Name: "alice"}
	mention := User{Name: "bob"}
	refAuthor := User{Name: "carol"}
	m := Message{
		Author:            author,
		Mentions:          []User{mention},
		ReferencedMessage: &Message{Author: refAuthor},
	}
	users := m.ReferencedUsers()
	if len(users) != 3 {
		t.Fatalf("len = %d, want 3", len(users))
	}
}
