package writer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/exportctx"
	"github.com/archiveworks/chatexport/markdown"
)

const plainTextBanner = "=============================================="

// PlainText renders the minimal-markdown, banner-delimited transcript
// format.
type PlainText struct {
	Ctx  *exportctx.Context
	Meta Metadata

	count int
}

func (w *PlainText) Preamble(out io.Writer) error {
	_, err := fmt.Fprintf(out, "%s\nGuild: %s\nChannel: %s\n%s\n\n",
		plainTextBanner, w.Meta.Guild.Name, w.Meta.Channel.HierarchicalName(), plainTextBanner)
	return err
}

func (w *PlainText) WriteMessage(out io.Writer, m domain.Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", w.Ctx.FormatTimestamp(m.Timestamp, 'f'), m.Author.FullName())
	content := renderContent(w.Ctx, m, markdown.ProfileMinimal)
	if content != "" {
		b.WriteString(content)
		b.WriteString("\n")
	}
	if len(m.Attachments) > 0 {
		b.WriteString("{Attachments}\n")
		for _, a := range m.Attachments {
			fmt.Fprintf(&b, "- %s\n", w.Ctx.ResolveAssetURL(context.Background(), a.URL))
		}
	}
	for _, e := range m.Embeds {
		b.WriteString("{Embed}\n")
		if e.Title != "" {
			fmt.Fprintf(&b, "- Title: %s\n", e.Title)
		}
		if e.Description != "" {
			fmt.Fprintf(&b, "- %s\n", e.Description)
		}
	}
	if len(m.Stickers) > 0 {
		b.WriteString("{Stickers}\n")
		for _, s := range m.Stickers {
			fmt.Fprintf(&b, "- %s\n", s.Name)
		}
	}
	if len(m.Reactions) > 0 {
		b.WriteString("{Reactions}\n")
		for _, r := range m.Reactions {
			fmt.Fprintf(&b, "- %s (%d)\n", r.Emoji.Code(), r.Count)
		}
	}
	b.WriteString("\n")
	w.count++
	_, err := io.WriteString(out, b.String())
	return err
}

func (w *PlainText) Postamble(out io.Writer) error {
	_, err := fmt.Fprintf(out, "%s\nExported %d message(s).\n", plainTextBanner, w.count)
	return err
}
