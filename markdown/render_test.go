package markdown

import (
	"strings"
	"testing"
	"time"
)

type fakeResolver struct{}

func (fakeResolver) UserName(id string) (string, bool) {
	if id == "1" {
		return "alice", true
	}
	return "", false
}
func (fakeResolver) ChannelName(id string) (string, bool) {
	if id == "2" {
		return "general", true
	}
	return "", false
}
func (fakeResolver) RoleName(id string) (string, bool) {
	if id == "3" {
		return "mods", true
	}
	return "", false
}

func TestRenderPlainTextDropsStyling(t *testing.T) {
	nodes := Parse("**bold** and _italic_", ProfileFull)
	got := RenderPlainText(nodes, RenderOptions{})
	if got != "bold and italic" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderPlainTextResolvesMentions(t *testing.T) {
	nodes := Parse("hello <@1> in <#2>", ProfileFull)
	got := RenderPlainText(nodes, RenderOptions{Resolver: fakeResolver{}})
	if got != "hello @alice in #general" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderPlainTextFallsBackToRawIDWhenUnresolved(t *testing.T) {
	nodes := Parse("<@999>", ProfileFull)
	got := RenderPlainText(nodes, RenderOptions{Resolver: fakeResolver{}})
	if got != "@999" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderHTMLEscapesTextAndWrapsFormatting(t *testing.T) {
	nodes := Parse("**<script>**", ProfileFull)
	got := RenderHTML(nodes, RenderOptions{})
	if !strings.Contains(got, "<strong>") || !strings.Contains(got, "&lt;script&gt;") {
		t.Fatalf("got %q", got)
	}
}

func TestRenderHTMLCustomEmojiProducesImg(t *testing.T) {
	nodes := Parse("<a:party:456>", ProfileFull)
	got := RenderHTML(nodes, RenderOptions{})
	if !strings.Contains(got, `src="https://cdn.discordapp.com/emojis/456.gif"`) {
		t.Fatalf("got %q", got)
	}
}

func TestRenderHTMLTimestampIncludesUnixAttribute(t *testing.T) {
	nodes := Parse("<t:1700000000:d>", ProfileFull)
	got := RenderHTML(nodes, RenderOptions{})
	if !strings.Contains(got, `data-unix="1700000000"`) {
		t.Fatalf("got %q", got)
	}
}

func TestDefaultTimestampFormatKnownCodes(t *testing.T) {
	instant := time.Date(2024, time.March, 5, 13, 4, 0, 0, time.UTC)
	if got := DefaultTimestampFormat(instant, 't'); got != "13:04" {
		t.Errorf("t code = %q", got)
	}
	if got := DefaultTimestampFormat(instant, 'D'); got != "5 March 2024" {
		t.Errorf("D code = %q", got)
	}
}
