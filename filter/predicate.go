package filter

import (
	"regexp"
	"strings"
	"time"

	"github.com/archiveworks/chatexport/domain"
)

// Predicate is one leaf or combinator node of a parsed filter expression.
type Predicate interface {
	Matches(m domain.Message) bool
}

// Null is the empty-expression filter: it matches every message.
type nullPredicate struct{}

func (nullPredicate) Matches(domain.Message) bool { return true }

// Null is the singleton returned for an empty expression.
var Null Predicate = nullPredicate{}

type andPredicate struct{ a, b Predicate }

func (p andPredicate) Matches(m domain.Message) bool { return p.a.Matches(m) && p.b.Matches(m) }

type orPredicate struct{ a, b Predicate }

func (p orPredicate) Matches(m domain.Message) bool { return p.a.Matches(m) || p.b.Matches(m) }

type notPredicate struct{ p Predicate }

func (p notPredicate) Matches(m domain.Message) bool { return !p.p.Matches(m) }

type containsPredicate struct{ text string }

func (p containsPredicate) Matches(m domain.Message) bool {
	return strings.Contains(strings.ToLower(m.Content), strings.ToLower(p.text))
}

type fromPredicate struct{ value string }

func (p fromPredicate) Matches(m domain.Message) bool {
	return userMatches(m.Author, p.value)
}

func userMatches(u domain.User, value string) bool {
	if u.ID.String() == value {
		return true
	}
	ci := strings.EqualFold
	return ci(u.Name, value) || ci(u.FullName(), value)
}

type mentionsPredicate struct{ value string }

func (p mentionsPredicate) Matches(m domain.Message) bool {
	for _, u := range m.Mentions {
		if userMatches(u, p.value) {
			return true
		}
	}
	return false
}

type reactionPredicate struct{ value string }

func (p reactionPredicate) Matches(m domain.Message) bool {
	for _, r := range m.Reactions {
		if strings.EqualFold(r.Emoji.Code(), p.value) || strings.EqualFold(r.Emoji.Name, p.value) {
			return true
		}
	}
	return false
}

var linkRe = regexp.MustCompile(`https?://\S+`)
var inviteRe = regexp.MustCompile(`discord(?:\.gg|app\.com/invite|\.com/invite)/\S+`)

// hasKindAliases maps the pluralised/alternate spellings the original
// tool's vocabulary accepts onto one canonical kind.
var hasKindAliases = map[string]string{
	"link": "link", "links": "link",
	"embed": "embed", "embeds": "embed",
	"file": "file", "files": "file",
	"video": "video", "videos": "video",
	"image": "image", "images": "image", "img": "image",
	"sound": "sound", "sounds": "sound", "audio": "sound",
	"sticker": "sticker", "stickers": "sticker",
	"invite": "invite", "invites": "invite",
	"mention": "mention", "mentions": "mention",
	"pin": "pin", "pins": "pin", "pinned": "pin",
}

type hasPredicate struct{ kind string }

func (p hasPredicate) Matches(m domain.Message) bool {
	switch hasKindAliases[strings.ToLower(p.kind)] {
	case "link":
		return linkRe.MatchString(m.Content) || hasEmbedWithURL(m)
	case "embed":
		return len(m.Embeds) > 0
	case "file":
		return len(m.Attachments) > 0
	case "video":
		return hasAttachmentKind(m, func(a domain.Attachment) bool { return a.IsVideo() })
	case "image":
		return hasAttachmentKind(m, func(a domain.Attachment) bool { return a.IsImage() }) || hasEmbedImage(m)
	case "sound":
		return hasAttachmentKind(m, func(a domain.Attachment) bool { return a.IsAudio() })
	case "sticker":
		return len(m.Stickers) > 0
	case "invite":
		return inviteRe.MatchString(m.Content)
	case "mention":
		return len(m.Mentions) > 0
	case "pin":
		return m.Pinned
	default:
		return false
	}
}

func hasAttachmentKind(m domain.Message, pred func(domain.Attachment) bool) bool {
	for _, a := range m.Attachments {
		if pred(a) {
			return true
		}
	}
	return false
}

func hasEmbedWithURL(m domain.Message) bool {
	for _, e := range m.Embeds {
		if e.URL != "" {
			return true
		}
	}
	return false
}

func hasEmbedImage(m domain.Message) bool {
	for _, e := range m.Embeds {
		if e.Image != nil || e.Thumbnail != nil {
			return true
		}
	}
	return false
}

type beforePredicate struct{ id domain.Id }

func (p beforePredicate) Matches(m domain.Message) bool { return m.ID.Less(p.id) }

type afterPredicate struct{ id domain.Id }

func (p afterPredicate) Matches(m domain.Message) bool { return p.id.Less(m.ID) }

type duringPredicate struct{ start, end domain.Id }

func (p duringPredicate) Matches(m domain.Message) bool {
	return !m.ID.Less(p.start) && m.ID.Less(p.end)
}

type replyLikePredicate struct{}

func (replyLikePredicate) Matches(m domain.Message) bool { return m.IsReplyLike() }

// endOfDay returns the id minted 24 hours after id's embedded time, so
// `during:` can compute an end-of-day bound from a bare calendar date
// without requiring both endpoints.
func endOfDay(id domain.Id) domain.Id {
	return domain.IdFromTime(id.Time().Add(24 * time.Hour))
}
