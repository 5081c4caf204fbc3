package writer

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/exportctx"
	"github.com/archiveworks/chatexport/markdown"
)

var csvHeader = []string{"AuthorID", "Author", "Date", "Content", "Attachments", "Reactions"}

// CSV renders one row per message via encoding/csv, preceded by a UTF-8
// byte-order mark. RFC 4180 quoting (doubled embedded quotes) is already
// what encoding/csv implements, so there is nothing to add on top of it.
type CSV struct {
	Ctx *exportctx.Context

	w *csv.Writer
}

func (w *CSV) Preamble(out io.Writer) error {
	bomWriter := unicode.UTF8BOM.NewEncoder().Writer(out)
	w.w = csv.NewWriter(bomWriter)
	if err := w.w.Write(csvHeader); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

func (w *CSV) WriteMessage(out io.Writer, m domain.Message) error {
	content := renderContent(w.Ctx, m, markdown.ProfileMinimal)

	var attachments []string
	for _, a := range m.Attachments {
		attachments = append(attachments, a.URL)
	}
	var reactions []string
	for _, r := range m.Reactions {
		reactions = append(reactions, r.Emoji.Code()+" ("+strconv.Itoa(r.Count)+")")
	}

	row := []string{
		m.Author.ID.String(),
		m.Author.FullName(),
		w.Ctx.FormatTimestamp(m.Timestamp, 'f'),
		content,
		strings.Join(attachments, ", "),
		strings.Join(reactions, ", "),
	}
	cw := csv.NewWriter(out)
	if err := cw.Write(row); err != nil {
		return err
	}
	// Flushed per row so the sink's byte-size partition limit sees
	// accurate counts rather than whatever csv.Writer's internal
	// bufio buffer happens to have flushed so far.
	cw.Flush()
	return cw.Error()
}

func (w *CSV) Postamble(_ io.Writer) error {
	w.w.Flush()
	return w.w.Error()
}
