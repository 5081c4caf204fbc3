package writer

import (
	"context"
	_ "embed"
	"fmt"
	"html"
	"io"
	"time"

	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/exportctx"
)

//go:embed assets/transcript.css
var transcriptCSS string

//go:embed assets/transcript.js
var transcriptJS string

// Theme selects the HTML writer's colour scheme.
type Theme int

const (
	ThemeDark Theme = iota
	ThemeLight
)

// groupWindow is how close in time two messages from the same author
// must be to share a message group.
const groupWindow = 7 * time.Minute

// HTML renders the grouped, styled transcript format.
type HTML struct {
	Ctx   *exportctx.Context
	Meta  Metadata
	Theme Theme

	prev    *domain.Message
	inGroup bool
}

func (w *HTML) Preamble(out io.Writer) error {
	themeClass := "theme-dark"
	if w.Theme == ThemeLight {
		themeClass = "theme-light"
	}
	_, err := fmt.Fprintf(out, `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>%s</style>
</head>
<body class="%s">
<script>%s</script>
<div class="chatlog" data-guild="%s" data-channel="%s">
`,
		html.EscapeString(w.Meta.Channel.Name), transcriptCSS, themeClass, transcriptJS,
		html.EscapeString(w.Meta.Guild.ID.String()), html.EscapeString(w.Meta.Channel.ID.String()))
	return err
}

func (w *HTML) WriteMessage(out io.Writer, m domain.Message) error {
	grouped := w.prev != nil && sameGroup(w.Ctx, *w.prev, m)
	content, jumbo := renderContentHTML(w.Ctx, m)

	var b []byte
	b = append(b, []byte(fmt.Sprintf(`<div class="chatlog__message" id="message-%s" data-message-id="%s">`, m.ID.String(), m.ID.String()))...)
	if !grouped {
		b = append(b, w.renderHeader(m)...)
	}
	emojiClass := ""
	if jumbo {
		emojiClass = " chatlog__emoji--large"
	}
	b = append(b, []byte(fmt.Sprintf(`<div class="chatlog__content%s">%s</div>`, emojiClass, content))...)
	b = append(b, w.renderSidecars(m)...)
	b = append(b, []byte("</div>\n")...)

	if _, err := out.Write(b); err != nil {
		return err
	}
	w.prev = &m
	return nil
}

func (w *HTML) renderHeader(m domain.Message) []byte {
	name := displayName(w.Ctx, m)
	colorAttr := ""
	if w.Ctx != nil {
		if c := w.Ctx.UserColor(m.Author.ID); c != nil {
			colorAttr = fmt.Sprintf(` style="color:#%06x"`, *c)
		}
	}
	timestamp := m.Timestamp.Local().Format("2006-01-02 15:04")
	if w.Ctx != nil {
		timestamp = w.Ctx.FormatTimestamp(m.Timestamp, 'g')
	}
	return []byte(fmt.Sprintf(
		`<div class="chatlog__author-header"><img class="chatlog__avatar" src="%s"><span class="chatlog__author"%s>%s</span><span class="chatlog__timestamp">%s</span></div>`,
		html.EscapeString(m.Author.AvatarURL()), colorAttr, html.EscapeString(name),
		html.EscapeString(timestamp),
	))
}

func (w *HTML) renderSidecars(m domain.Message) []byte {
	var b []byte
	for _, a := range m.Attachments {
		url := a.URL
		if w.Ctx != nil {
			url = w.Ctx.ResolveAssetURL(context.Background(), a.URL)
		}
		if a.IsImage() {
			b = append(b, []byte(fmt.Sprintf(`<div class="chatlog__attachment"><img src="%s" loading="lazy"></div>`, html.EscapeString(url)))...)
		} else {
			b = append(b, []byte(fmt.Sprintf(`<div class="chatlog__attachment"><a href="%s">%s</a></div>`, html.EscapeString(url), html.EscapeString(a.FileName)))...)
		}
	}
	for _, e := range m.Embeds {
		b = append(b, []byte(`<div class="chatlog__embed">`)...)
		if e.Title != "" {
			b = append(b, []byte(fmt.Sprintf(`<div class="chatlog__embed-title">%s</div>`, html.EscapeString(e.Title)))...)
		}
		if e.Description != "" {
			b = append(b, []byte(fmt.Sprintf(`<div class="chatlog__embed-description">%s</div>`, html.EscapeString(e.Description)))...)
		}
		if e.Image != nil {
			b = append(b, []byte(fmt.Sprintf(`<img class="chatlog__embed-image" src="%s">`, html.EscapeString(e.Image.URL)))...)
		}
		b = append(b, []byte(`</div>`)...)
	}
	if len(m.Reactions) > 0 {
		b = append(b, []byte(`<div class="chatlog__reactions">`)...)
		for _, r := range m.Reactions {
			b = append(b, []byte(fmt.Sprintf(`<span class="chatlog__reaction">%s %d</span>`, html.EscapeString(r.Emoji.Code()), r.Count))...)
		}
		b = append(b, []byte(`</div>`)...)
	}
	return b
}

func (w *HTML) Postamble(out io.Writer) error {
	_, err := io.WriteString(out, "</div>\n</body>\n</html>\n")
	return err
}

// displayName resolves the same name renderHeader shows in the header:
// the cached member's display name (nickname, else global display name,
// else username) when ctx has the author cached, else the author's
// FullName (username, plus #discriminator for legacy accounts).
func displayName(ctx *exportctx.Context, m domain.Message) string {
	name := m.Author.FullName()
	if ctx != nil {
		if n, ok := ctx.UserName(m.Author.ID.String()); ok {
			name = n
		}
	}
	return name
}

// sameGroup implements spec.md §4.6's HTML grouping rule: same author id
// and same rendered display name and within 7 minutes and neither is
// reply-like and both-or-neither are system notifications. The display
// name comparison uses the same ctx-resolved nickname renderHeader shows,
// so a nickname change between two consecutive messages breaks the group
// even though the two messages share one underlying account.
func sameGroup(ctx *exportctx.Context, prev, cur domain.Message) bool {
	if prev.Author.ID != cur.Author.ID {
		return false
	}
	if displayName(ctx, prev) != displayName(ctx, cur) {
		return false
	}
	if cur.Timestamp.Sub(prev.Timestamp) > groupWindow {
		return false
	}
	if prev.IsReplyLike() || cur.IsReplyLike() {
		return false
	}
	if prev.IsSystemNotification() != cur.IsSystemNotification() {
		return false
	}
	return true
}
