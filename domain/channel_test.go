package domain

import "testing"

func TestChannelEmptyAndMayHaveMessages(t *testing.T) {
	c := Channel{ID: 100}
	if !c.IsEmpty() {
		t.Error("channel with nil LastMessageID should be empty")
	}
	last := Id(500)
	c.LastMessageID = &last
	if c.IsEmpty() {
		t.Error("channel with a LastMessageID should not be empty")
	}
	if !c.MayHaveMessagesAfter(200) {
		t.Error("cursor 200 < last 500 should allow more messages after")
	}
	if c.MayHaveMessagesAfter(600) {
		t.Error("cursor 600 > last 500 should not allow more messages after")
	}
	if !c.MayHaveMessagesBefore(600) {
		t.Error("cursor 600 > id 100 should allow more messages before")
	}
}

func TestChannelHierarchicalName(t *testing.T) {
	cat := &Channel{Name: "General"}
	ch := Channel{Name: "off-topic", Parent: cat}
	if got, want := ch.HierarchicalName(), "General / off-topic"; got != want {
		t.Errorf("HierarchicalName() = %q, want %q", got, want)
	}
}
