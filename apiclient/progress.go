package apiclient

import (
	"context"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/archiveworks/chatexport/domain"
)

// ProgressProbe reports advisory export progress for one channel, computed
// as (now-first)/(last-first) clamped to [0,1]. It is seeded by a single
// probe of the most recent message in the export's range.
type ProgressProbe struct {
	firstTimestamp int64
	lastTimestamp  int64
	haveRange      bool
}

// NewProgressProbe probes the last message at or before `before` (or the
// channel's most recent message if before is nil) once, and records
// `first`'s timestamp as the range's lower bound.
func (c *Client) NewProgressProbe(ctx context.Context, channelID domain.Id, first domain.Message, before *domain.Id) (*ProgressProbe, error) {
	path := "/channels/" + channelID.String() + "/messages?limit=1"
	if before != nil {
		path += "&before=" + before.String()
	}
	var page []discordgo.Message
	if _, err := c.request(ctx, http.MethodGet, path, nil, &page); err != nil {
		return &ProgressProbe{haveRange: false}, nil // progress is advisory only
	}
	if len(page) == 0 {
		return &ProgressProbe{haveRange: false}, nil
	}
	last, err := domain.FromMessage(&page[0])
	if err != nil {
		return &ProgressProbe{haveRange: false}, nil
	}
	return &ProgressProbe{
		firstTimestamp: first.Timestamp.UnixMilli(),
		lastTimestamp:  last.Timestamp.UnixMilli(),
		haveRange:      true,
	}, nil
}

// Fraction returns the clamped [0,1] progress for a message currently
// being processed.
func (p *ProgressProbe) Fraction(current domain.Message) float64 {
	if p == nil || !p.haveRange || p.lastTimestamp == p.firstTimestamp {
		return 0
	}
	now := current.Timestamp.UnixMilli()
	f := float64(now-p.firstTimestamp) / float64(p.lastTimestamp-p.firstTimestamp)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
