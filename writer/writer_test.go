package writer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/exportctx"
)

func testMessage() domain.Message {
	return domain.Message{
		ID:        domain.IdFromTime(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)),
		Author:    domain.User{ID: domain.Id(1), Name: "alice", Discriminator: nil},
		Content:   "hello world",
		Timestamp: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestPlainTextWritesHeaderAndContent(t *testing.T) {
	w := &PlainText{Ctx: exportctx.New(exportctx.Options{}), Meta: Metadata{}}
	var pre, body, post bytes.Buffer
	if err := w.Preamble(&pre); err != nil {
		t.Fatalf("Preamble: %v", err)
	}
	if err := w.WriteMessage(&body, testMessage()); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := w.Postamble(&post); err != nil {
		t.Fatalf("Postamble: %v", err)
	}
	if !strings.Contains(body.String(), "hello world") {
		t.Fatalf("body missing content: %q", body.String())
	}
	if !strings.Contains(post.String(), "Exported 1 message(s)") {
		t.Fatalf("postamble missing count: %q", post.String())
	}
}

func TestCSVWritesBOMAndHeader(t *testing.T) {
	w := &CSV{Ctx: exportctx.New(exportctx.Options{})}
	var pre bytes.Buffer
	if err := w.Preamble(&pre); err != nil {
		t.Fatalf("Preamble: %v", err)
	}
	out := pre.Bytes()
	if out[0] != 0xEF || out[1] != 0xBB || out[2] != 0xBF {
		t.Fatalf("missing UTF-8 BOM, got %x", out[:3])
	}
	if !strings.Contains(string(out), "AuthorID,Author,Date,Content,Attachments,Reactions") {
		t.Fatalf("missing header row: %q", out)
	}
}

func TestCSVRowContainsRenderedContent(t *testing.T) {
	w := &CSV{Ctx: exportctx.New(exportctx.Options{})}
	var pre, body bytes.Buffer
	w.Preamble(&pre)
	if err := w.WriteMessage(&body, testMessage()); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if !strings.Contains(body.String(), "hello world") {
		t.Fatalf("row missing content: %q", body.String())
	}
}

func TestJSONPostambleProducesValidSchema(t *testing.T) {
	w := &JSON{Ctx: exportctx.New(exportctx.Options{}), Meta: Metadata{
		Guild:   domain.Guild{ID: domain.Id(1), Name: "G"},
		Channel: domain.Channel{ID: domain.Id(2), Name: "C"},
	}}
	if err := w.WriteMessage(nil, testMessage()); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	var out bytes.Buffer
	if err := w.Postamble(&out); err != nil {
		t.Fatalf("Postamble: %v", err)
	}
	s := out.String()
	for _, want := range []string{`"messageCount": 1`, `"guild"`, `"channel"`, `"messages"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q: %s", want, s)
		}
	}
}

func TestSameGroupRequiresMatchingAuthorWithinWindow(t *testing.T) {
	a := testMessage()
	b := a
	b.Timestamp = a.Timestamp.Add(2 * time.Minute)
	if !sameGroup(nil, a, b) {
		t.Fatal("expected grouping within window")
	}
	c := a
	c.Timestamp = a.Timestamp.Add(10 * time.Minute)
	if sameGroup(nil, a, c) {
		t.Fatal("expected no grouping beyond window")
	}
}

func TestSameGroupBreaksOnReplyLike(t *testing.T) {
	a := testMessage()
	b := a
	b.Kind = domain.KindReply
	if sameGroup(nil, a, b) {
		t.Fatal("expected no grouping when message is reply-like")
	}
}

func TestSameGroupUsesResolvedNameNotRawAuthorSnapshot(t *testing.T) {
	a := testMessage()
	b := a
	b.Timestamp = a.Timestamp.Add(2 * time.Minute)
	b.Author.Name = "alice_renamed"

	if sameGroup(nil, a, b) {
		t.Fatal("expected raw FullName comparison (no ctx) to treat the renamed snapshot as a different author")
	}

	ctx := exportctx.New(exportctx.Options{})
	if _, err := ctx.PopulateMember(context.Background(), a.Author.ID, a.Author); err != nil {
		t.Fatalf("PopulateMember: %v", err)
	}
	if !sameGroup(ctx, a, b) {
		t.Fatal("expected grouping to use the cached resolved display name, not each message's raw author snapshot")
	}
}

func TestHTMLPreambleEmbedsCSSAndJS(t *testing.T) {
	w := &HTML{Ctx: exportctx.New(exportctx.Options{}), Meta: Metadata{
		Guild: domain.Guild{ID: domain.Id(1)}, Channel: domain.Channel{ID: domain.Id(2), Name: "general"},
	}}
	var out bytes.Buffer
	if err := w.Preamble(&out); err != nil {
		t.Fatalf("Preamble: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "chatlog") || !strings.Contains(s, "showSpoiler") {
		t.Fatalf("preamble missing embedded assets: %s", s)
	}
}

func TestDedupedInlineEmojiPreservesFirstSeenOrder(t *testing.T) {
	got := dedupedInlineEmoji(":smile: hi :smile: :frown:")
	want := []string{"smile", "frown"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
