package markdown

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
)

// Resolver supplies display names for mention targets. Implementations
// live in exportctx, which knows the channel's member/role/channel caches;
// this package only knows how to ask for them.
type Resolver interface {
	UserName(id string) (string, bool)
	ChannelName(id string) (string, bool)
	RoleName(id string) (string, bool)
}

// TimestampFormat renders a resolved instant for the "f"/"F"/"t"/"T"/"d"/"D"
// timestamp format codes. The renderers do not call it for the relative
// (r/R) form, which carries no format code; they print that as an RFC 1123
// date.
type TimestampFormat func(t time.Time, code rune) string

var formatCodeLayouts = map[rune]string{
	't': "15:04",
	'T': "15:04:05",
	'd': "02/01/2006",
	'D': "2 January 2006",
	'f': "2 January 2006 15:04",
	'F': "Monday, 2 January 2006 15:04",
}

// DefaultTimestampFormat implements the standard layouts; callers wanting
// locale-aware rendering supply their own via RenderOptions.
func DefaultTimestampFormat(t time.Time, code rune) string {
	layout, ok := formatCodeLayouts[code]
	if !ok {
		return t.Format(time.RFC1123)
	}
	return t.Format(layout)
}

// RenderOptions customizes output production.
type RenderOptions struct {
	Resolver  Resolver
	FormatFn  TimestampFormat
	JumboOnly bool // HTML: content is emoji only; every emoji node gets the emoji-jumbo class
}

func (o RenderOptions) formatFn() TimestampFormat {
	if o.FormatFn != nil {
		return o.FormatFn
	}
	return DefaultTimestampFormat
}

// RenderPlainText flattens an AST back into human-readable text, dropping
// all styling markers but preserving mention/emoji/link/timestamp content.
// Used by the plain-text, CSV, and JSON writers.
func RenderPlainText(nodes []Node, opts RenderOptions) string {
	var b strings.Builder
	for _, n := range nodes {
		renderPlainNode(&b, n, opts)
	}
	return b.String()
}

func renderPlainNode(b *strings.Builder, n Node, opts RenderOptions) {
	switch n.Kind {
	case KindText:
		b.WriteString(n.Text)
	case KindFormatting:
		for _, c := range n.Children {
			renderPlainNode(b, c, opts)
		}
	case KindHeading:
		for _, c := range n.Children {
			renderPlainNode(b, c, opts)
		}
	case KindList:
		for _, item := range n.ListItems {
			b.WriteString("- ")
			for _, c := range item.Children {
				renderPlainNode(b, c, opts)
			}
			b.WriteString("\n")
		}
	case KindInlineCode, KindMultiLineCode:
		b.WriteString(n.Code)
	case KindLink:
		for _, c := range n.TitleNodes {
			renderPlainNode(b, c, opts)
		}
	case KindEmoji:
		b.WriteString(renderEmojiText(n))
	case KindMention:
		b.WriteString(renderMentionText(n, opts))
	case KindTimestamp:
		b.WriteString(renderTimestampText(n, opts))
	}
}

func renderEmojiText(n Node) string {
	if n.EmojiID == "" {
		return n.EmojiName
	}
	return ":" + n.EmojiName + ":"
}

func renderMentionText(n Node, opts RenderOptions) string {
	switch n.MentionKind {
	case MentionEveryone:
		return "@everyone"
	case MentionHere:
		return "@here"
	case MentionUser:
		if opts.Resolver != nil {
			if name, ok := opts.Resolver.UserName(n.TargetID); ok {
				return "@" + name
			}
		}
		return "@" + n.TargetID
	case MentionChannel:
		if opts.Resolver != nil {
			if name, ok := opts.Resolver.ChannelName(n.TargetID); ok {
				return "#" + name
			}
		}
		return "#" + n.TargetID
	case MentionRole:
		if opts.Resolver != nil {
			if name, ok := opts.Resolver.RoleName(n.TargetID); ok {
				return "@" + name
			}
		}
		return "@role:" + n.TargetID
	}
	return ""
}

func renderTimestampText(n Node, opts RenderOptions) string {
	if n.Invalid || n.Instant == nil {
		return "(invalid timestamp)"
	}
	if n.FormatCode == nil {
		return n.Instant.Format(time.RFC1123)
	}
	return opts.formatFn()(*n.Instant, *n.FormatCode)
}

// RenderHTML renders the AST to the span/anchor markup the HTML transcript
// writer embeds in each message's content block.
func RenderHTML(nodes []Node, opts RenderOptions) string {
	var b strings.Builder
	for _, n := range nodes {
		renderHTMLNode(&b, n, opts)
	}
	return b.String()
}

var formatTags = map[FormattingKind][2]string{
	FormatBold:          {"<strong>", "</strong>"},
	FormatItalic:        {"<em>", "</em>"},
	FormatUnderline:     {"<u>", "</u>"},
	FormatStrikethrough: {"<s>", "</s>"},
	FormatSpoiler:       {`<span class="spoiler">`, "</span>"},
	FormatQuote:         {`<blockquote>`, "</blockquote>"},
}

func renderHTMLNode(b *strings.Builder, n Node, opts RenderOptions) {
	switch n.Kind {
	case KindText:
		b.WriteString(html.EscapeString(n.Text))
	case KindFormatting:
		tags := formatTags[n.FormattingKind]
		b.WriteString(tags[0])
		for _, c := range n.Children {
			renderHTMLNode(b, c, opts)
		}
		b.WriteString(tags[1])
	case KindHeading:
		tag := fmt.Sprintf("h%d", n.HeadingLevel+3) // h4..h6, transcript body never needs h1-h3
		b.WriteString("<" + tag + ">")
		for _, c := range n.Children {
			renderHTMLNode(b, c, opts)
		}
		b.WriteString("</" + tag + ">")
	case KindList:
		tag := "ul"
		if n.Ordered {
			tag = "ol"
		}
		b.WriteString("<" + tag + ">")
		for _, item := range n.ListItems {
			b.WriteString("<li>")
			for _, c := range item.Children {
				renderHTMLNode(b, c, opts)
			}
			b.WriteString("</li>")
		}
		b.WriteString("</" + tag + ">")
	case KindInlineCode:
		b.WriteString("<code>" + html.EscapeString(n.Code) + "</code>")
	case KindMultiLineCode:
		class := ""
		if n.Lang != "" {
			class = ` class="language-` + html.EscapeString(n.Lang) + `"`
		}
		b.WriteString("<pre><code" + class + ">" + html.EscapeString(n.Code) + "</code></pre>")
	case KindLink:
		b.WriteString(`<a href="` + html.EscapeString(n.URL) + `">`)
		for _, c := range n.TitleNodes {
			renderHTMLNode(b, c, opts)
		}
		b.WriteString("</a>")
	case KindEmoji:
		renderHTMLEmoji(b, n, opts)
	case KindMention:
		renderHTMLMention(b, n, opts)
	case KindTimestamp:
		renderHTMLTimestamp(b, n, opts)
	}
}

func renderHTMLEmoji(b *strings.Builder, n Node, opts RenderOptions) {
	class := "emoji"
	if opts.JumboOnly {
		class += " emoji-jumbo"
	}
	if n.EmojiID == "" {
		b.WriteString(`<span class="` + class + `">` + html.EscapeString(n.EmojiName) + `</span>`)
		return
	}
	ext := "png"
	if n.EmojiAnimated {
		ext = "gif"
	}
	url := "https://cdn.discordapp.com/emojis/" + n.EmojiID + "." + ext
	b.WriteString(`<img class="` + class + `" src="` + html.EscapeString(url) + `" alt=":` + html.EscapeString(n.EmojiName) + `:" title=":` + html.EscapeString(n.EmojiName) + `:">`)
}

func renderHTMLMention(b *strings.Builder, n Node, opts RenderOptions) {
	switch n.MentionKind {
	case MentionEveryone:
		b.WriteString(`<span class="mention">@everyone</span>`)
	case MentionHere:
		b.WriteString(`<span class="mention">@here</span>`)
	case MentionUser:
		name := n.TargetID
		if opts.Resolver != nil {
			if v, ok := opts.Resolver.UserName(n.TargetID); ok {
				name = v
			}
		}
		b.WriteString(`<span class="mention" title="` + html.EscapeString(n.TargetID) + `">@` + html.EscapeString(name) + `</span>`)
	case MentionChannel:
		name := n.TargetID
		if opts.Resolver != nil {
			if v, ok := opts.Resolver.ChannelName(n.TargetID); ok {
				name = v
			}
		}
		b.WriteString(`<span class="mention">#` + html.EscapeString(name) + `</span>`)
	case MentionRole:
		name := n.TargetID
		if opts.Resolver != nil {
			if v, ok := opts.Resolver.RoleName(n.TargetID); ok {
				name = v
			}
		}
		b.WriteString(`<span class="mention">@` + html.EscapeString(name) + `</span>`)
	}
}

func renderHTMLTimestamp(b *strings.Builder, n Node, opts RenderOptions) {
	if n.Invalid || n.Instant == nil {
		b.WriteString(`<span class="timestamp">(invalid timestamp)</span>`)
		return
	}
	unix := strconv.FormatInt(n.Instant.Unix(), 10)
	text := n.Instant.Format(time.RFC1123)
	if n.FormatCode != nil {
		text = opts.formatFn()(*n.Instant, *n.FormatCode)
	}
	b.WriteString(`<span class="timestamp" data-unix="` + unix + `">` + html.EscapeString(text) + `</span>`)
}
