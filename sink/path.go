package sink

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/archiveworks/chatexport/domain"
)

// TemplateData supplies the values substituted into a path template.
type TemplateData struct {
	Guild        domain.Guild
	Channel      domain.Channel
	ParentName   string // empty if the channel has no parent category
	ParentID     domain.Id
	Position     int
	ExportedAt   time.Time
}

// ExpandTemplate substitutes %-specifiers in template with values from
// data. Recognised specifiers: %g/%G guild name/id, %c/%C channel
// name/id, %p/%P parent category name/id, %a/%b channel position
// zero-padded/unpadded, %t/%T export time local/UTC, %d export date,
// %% a literal percent. An unrecognised %X passes through unchanged.
// Every substituted value is sanitised against filesystem-illegal
// characters before insertion.
func ExpandTemplate(template string, data TemplateData) string {
	var b strings.Builder
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' || i == len(runes)-1 {
			b.WriteRune(runes[i])
			continue
		}
		spec := runes[i+1]
		i++
		switch spec {
		case 'g':
			b.WriteString(sanitizePathSegment(data.Guild.Name))
		case 'G':
			b.WriteString(data.Guild.ID.String())
		case 'c':
			b.WriteString(sanitizePathSegment(data.Channel.Name))
		case 'C':
			b.WriteString(data.Channel.ID.String())
		case 'p':
			b.WriteString(sanitizePathSegment(data.ParentName))
		case 'P':
			if !data.ParentID.IsZero() {
				b.WriteString(data.ParentID.String())
			}
		case 'a':
			b.WriteString(fmt.Sprintf("%03d", data.Position))
		case 'b':
			b.WriteString(fmt.Sprintf("%d", data.Position))
		case 't':
			b.WriteString(data.ExportedAt.Local().Format("15-04-05"))
		case 'T':
			b.WriteString(data.ExportedAt.UTC().Format("15-04-05"))
		case 'd':
			b.WriteString(data.ExportedAt.Format("2006-01-02"))
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteRune(spec)
		}
	}
	return b.String()
}

// sanitizePathSegment NFC-normalises a display name (so visually
// identical guild/channel names collapse to one filesystem path
// regardless of combining-mark order) and strips characters illegal in
// filesystem path segments on common platforms, replacing each with an
// underscore.
func sanitizePathSegment(s string) string {
	s = norm.NFC.String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
