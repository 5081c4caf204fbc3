// Package writer implements the five chat-transcript output formats, each
// conforming to sink.FormatWriter's preamble/writeMessage/postamble
// contract.
package writer

import (
	"time"

	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/exportctx"
	"github.com/archiveworks/chatexport/markdown"
)

// Metadata describes the channel/guild/date-range header every writer
// renders once in its preamble.
type Metadata struct {
	Guild      domain.Guild
	Channel    domain.Channel
	After      *domain.Id
	Before     *domain.Id
	ExportedAt time.Time
}

func renderContent(ctx *exportctx.Context, m domain.Message, profile markdown.Profile) string {
	nodes := markdown.Parse(m.Content, profile)
	opts := markdown.RenderOptions{Resolver: ctx, FormatFn: ctx.FormatTimestamp}
	return markdown.RenderPlainText(nodes, opts)
}

func renderContentHTML(ctx *exportctx.Context, m domain.Message) (string, bool) {
	nodes := markdown.Parse(m.Content, markdown.ProfileFull)
	opts := markdown.RenderOptions{Resolver: ctx, FormatFn: ctx.FormatTimestamp, JumboOnly: isJumboEmojiOnly(nodes)}
	return markdown.RenderHTML(nodes, opts), opts.JumboOnly
}

// isJumboEmojiOnly reports whether every non-whitespace node in the tree
// is an emoji, the trigger for HTML's large-emoji rendering mode.
func isJumboEmojiOnly(nodes []markdown.Node) bool {
	sawEmoji := false
	for _, n := range nodes {
		switch n.Kind {
		case markdown.KindEmoji:
			sawEmoji = true
		case markdown.KindText:
			if len(trimSpace(n.Text)) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return sawEmoji
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
