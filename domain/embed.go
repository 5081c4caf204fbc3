package domain

import "net/url"

// Embed is a normalised rich-content card attached to a message.
type Embed struct {
	Type        string
	URL         string
	Title       string
	Description string
	Image       *EmbedMedia
	Thumbnail   *EmbedMedia
}

// EmbedMedia is an image or thumbnail attached to an embed.
type EmbedMedia struct {
	URL    string
	Width  int
	Height int
}

// isImageOnly reports whether the embed carries an image and neither a
// title nor a description. Other fields, such as the thumbnail, are not
// checked.
func (e Embed) isImageOnly() bool {
	return e.Title == "" && e.Description == "" && e.Image != nil
}

// oneImagePerEmbedHosts lists upstream hosts known to emit one embed per
// image in a multi-image post, relying on the client to coalesce them.
var oneImagePerEmbedHosts = map[string]bool{
	"twitter.com": true, "x.com": true, "fxtwitter.com": true,
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// NormalizeEmbeds absorbs consecutive image-only embeds that share a url
// with a preceding embed on a known one-image-per-embed host, transitively,
// so that no two consecutive embeds share a url in that host set afterward.
// Idempotent: NormalizeEmbeds(NormalizeEmbeds(es)) == NormalizeEmbeds(es).
func NormalizeEmbeds(embeds []Embed) []Embed {
	if len(embeds) == 0 {
		return embeds
	}
	out := make([]Embed, 0, len(embeds))
	out = append(out, embeds[0])
	for i := 1; i < len(embeds); i++ {
		cur := embeds[i]
		prev := &out[len(out)-1]
		if cur.isImageOnly() && cur.URL == prev.URL && oneImagePerEmbedHosts[hostOf(prev.URL)] {
			if prev.Image == nil {
				prev.Image = cur.Image
			}
			continue
		}
		out = append(out, cur)
	}
	return out
}
