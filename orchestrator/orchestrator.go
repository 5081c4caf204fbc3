package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/archiveworks/chatexport/apiclient"
	"github.com/archiveworks/chatexport/assetcache"
	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/exportctx"
	"github.com/archiveworks/chatexport/filter"
	"github.com/archiveworks/chatexport/sink"
	"github.com/archiveworks/chatexport/writer"
)

// Request describes one channel export. It is the library surface spec.md
// §6 calls exportChannel(request, onProgress?).
type Request struct {
	Client    *apiclient.Client
	Assets    *assetcache.Store // nil when asset reuse is disabled
	GuildID   domain.Id
	ChannelID domain.Id
	After     *domain.Id
	Before    *domain.Id

	Format         Format
	OutputPath     string
	PartitionLimit sink.Limit
	MessageFilter  string

	Locale               string
	UTCNormalize         bool
	ShouldDownloadAssets bool
	ShouldReuseAssets    bool
	AssetsDirPath        string
}

// ProgressFunc reports advisory progress in [0, 1] as messages stream by.
type ProgressFunc func(fraction float64)

// ExportChannel runs the full pipeline described in spec.md §4.7 for one
// channel: validate, populate caches, paginate in batches, resolve
// members, filter, and write. Returns an error implementing IsFatal()
// bool; only ChannelEmptyError is guaranteed non-fatal.
func ExportChannel(ctx context.Context, req Request, onProgress ProgressFunc) error {
	channel, err := req.Client.GetChannel(ctx, req.ChannelID)
	if err != nil {
		return wrapFatal(req, "", err)
	}
	if channel.Kind == domain.ChannelForum {
		return wrapFatal(req, "", &apiclient.ErrUnsupportedChannel{ChannelID: req.ChannelID.String()})
	}

	guild := domain.DirectMessageGuild
	if !req.GuildID.IsZero() {
		g, err := req.Client.GetGuild(ctx, req.GuildID)
		if err != nil {
			return wrapFatal(req, "", err)
		}
		guild = g
	}

	exctx := exportctx.New(exportctx.Options{
		Client:               req.Client,
		Assets:               req.Assets,
		GuildID:              req.GuildID,
		Locale:               req.Locale,
		UTCNormalize:         req.UTCNormalize,
		ShouldDownloadAssets: req.ShouldDownloadAssets,
		ShouldReuseAssets:    req.ShouldReuseAssets,
		AssetsDirPath:        req.AssetsDirPath,
	})
	if err := exctx.PopulateChannelsAndRoles(ctx); err != nil {
		return wrapFatal(req, "", err)
	}

	pred, err := filter.Parse(req.MessageFilter)
	if err != nil {
		return wrapFatal(req, "", err)
	}

	meta := writer.Metadata{Guild: guild, Channel: channel, After: req.After, Before: req.Before, ExportedAt: time.Now()}
	fw := newFormatWriter(req.Format, exctx, meta)
	s := sink.New(req.OutputPath, req.PartitionLimit, fw)

	if isChannelOutOfRange(channel, req.After, req.Before) {
		if err := s.Finish(); err != nil {
			return wrapFatal(req, "", err)
		}
		return &ChannelEmptyError{ChannelID: req.ChannelID.String()}
	}

	var probe *apiclient.ProgressProbe
	probeInit := false
	wroteAny := false

	handleBatch := func(batch []domain.Message) error {
		users := referencedUsers(batch)
		if err := exctx.PopulateMembers(ctx, users, memberParallelism); err != nil {
			return err
		}
		for _, m := range batch {
			if !probeInit {
				probeInit = true
				if onProgress != nil {
					p, perr := req.Client.NewProgressProbe(ctx, req.ChannelID, m, req.Before)
					if perr == nil {
						probe = p
					}
				}
			}
			if onProgress != nil && probe != nil {
				onProgress(probe.Fraction(m))
			}
			if !pred.Matches(m) {
				continue
			}
			if err := s.WriteMessage(m); err != nil {
				return wrapMessageErr(req, m, err)
			}
			wroteAny = true
		}
		return nil
	}

	seq := req.Client.GetMessages(ctx, req.ChannelID, req.After, req.Before)
	if err := consumeInBatches(ctx, seq, batchSize, handleBatch); err != nil {
		return wrapFatal(req, "", err)
	}

	if err := s.Finish(); err != nil {
		return wrapFatal(req, "", err)
	}

	if !wroteAny {
		return &ChannelEmptyError{ChannelID: req.ChannelID.String()}
	}
	return nil
}

func isChannelOutOfRange(channel domain.Channel, after, before *domain.Id) bool {
	if channel.IsEmpty() {
		return true
	}
	if after != nil && !channel.MayHaveMessagesAfter(*after) {
		return true
	}
	if before != nil && !channel.MayHaveMessagesBefore(*before) {
		return true
	}
	return false
}

func referencedUsers(batch []domain.Message) []domain.User {
	seen := map[domain.Id]bool{}
	var out []domain.User
	for _, m := range batch {
		for _, u := range m.ReferencedUsers() {
			if u.ID.IsZero() || seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			out = append(out, u)
		}
	}
	return out
}

func wrapFatal(req Request, messageID string, err error) error {
	return &ExportError{
		GuildID:   req.GuildID.String(),
		ChannelID: req.ChannelID.String(),
		MessageID: messageID,
		Fatal:     isFatal(err),
		Wrapped:   err,
	}
}

func wrapMessageErr(req Request, m domain.Message, err error) error {
	return &ExportError{
		GuildID:   req.GuildID.String(),
		ChannelID: req.ChannelID.String(),
		MessageID: m.ID.String(),
		Fatal:     isFatal(err),
		Wrapped:   fmt.Errorf("write message: %w", err),
	}
}
