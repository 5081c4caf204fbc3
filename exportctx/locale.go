package exportctx

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Locale wraps a parsed BCP-47 tag, falling back to language.English the
// same way tbourn-chatbot's MessageService.TitleLocaleOrDefault does for
// an unset or unparseable tag.
type Locale struct {
	tag language.Tag
	utc bool
}

// ResolveLocale parses raw as a BCP-47 tag. An empty or invalid tag
// resolves to language.English rather than failing the export.
func ResolveLocale(raw string) Locale {
	if raw == "" {
		return Locale{tag: language.English}
	}
	tag, err := language.Parse(raw)
	if err != nil || tag == language.Und {
		return Locale{tag: language.English}
	}
	return Locale{tag: tag}
}

// withUTC returns a copy of l that renders timestamps in UTC instead of
// the local zone, per the config surface's isUtcNormalizationEnabled.
func (l Locale) withUTC(utc bool) Locale {
	l.utc = utc
	return l
}

// dateLayouts maps each base language to the day/month ordering its
// users expect from time.Format; languages not listed fall through to
// the ISO-ish default below.
var dateLayouts = map[language.Base]string{
	mustBase("en"): "Jan 2, 2006 3:04 PM",
	mustBase("de"): "02.01.2006 15:04",
	mustBase("fr"): "02/01/2006 15:04",
	mustBase("ja"): "2006/01/02 15:04",
	mustBase("ko"): "2006.01.02 15:04",
	mustBase("zh"): "2006年01月02日 15:04",
}

func mustBase(s string) language.Base {
	b, err := language.ParseBase(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (l Locale) longLayout() string {
	base, _ := l.tag.Base()
	if layout, ok := dateLayouts[base]; ok {
		return layout
	}
	return "2006-01-02 15:04"
}

// FormatTimestamp renders t for one of the format codes accepted by
// markdown timestamp tokens and config-level date display: g (short
// date+time), d (short date), t (short time), f/F (long date+time), R
// (relative, "3 hours ago" style). Locale only influences g/d/f/F; t and
// R are locale-independent.
func (l Locale) FormatTimestamp(t time.Time, code rune) string {
	local := t.Local()
	if l.utc {
		local = t.UTC()
	}
	switch code {
	case 'd':
		return local.Format(shortDateLayout(l))
	case 't':
		return local.Format("3:04 PM")
	case 'f':
		return local.Format(l.longLayout())
	case 'F':
		return local.Format("Monday, " + l.longLayout())
	case 'R':
		return FormatRelative(t)
	case 'g', 0:
		return local.Format(l.longLayout())
	default:
		return local.Format(l.longLayout())
	}
}

func shortDateLayout(l Locale) string {
	base, _ := l.tag.Base()
	switch base {
	case mustBase("de"), mustBase("fr"):
		return "02/01/2006"
	case mustBase("ja"), mustBase("ko"), mustBase("zh"):
		return "2006/01/02"
	default:
		return "Jan 2, 2006"
	}
}

// FormatRelative renders t relative to now in the coarse "N units ago /
// in N units" style used by chat clients. It is locale-independent: the
// pack shows no precedent for a pluralisation-catalogue library, so this
// is a direct, ungrounded implementation kept deliberately simple.
func FormatRelative(t time.Time) string {
	d := time.Since(t)
	future := d < 0
	if future {
		d = -d
	}
	unit, n := relativeUnit(d)
	var s string
	if n == 1 {
		s = fmt.Sprintf("1 %s", unit)
	} else {
		s = fmt.Sprintf("%d %ss", n, unit)
	}
	if future {
		return "in " + s
	}
	return s + " ago"
}

func relativeUnit(d time.Duration) (string, int64) {
	switch {
	case d < time.Minute:
		return "second", int64(d / time.Second)
	case d < time.Hour:
		return "minute", int64(d / time.Minute)
	case d < 24*time.Hour:
		return "hour", int64(d / time.Hour)
	case d < 30*24*time.Hour:
		return "day", int64(d / (24 * time.Hour))
	case d < 365*24*time.Hour:
		return "month", int64(d / (30 * 24 * time.Hour))
	default:
		return "year", int64(d / (365 * 24 * time.Hour))
	}
}
