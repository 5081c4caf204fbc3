package orchestrator

import (
	"context"

	"github.com/archiveworks/chatexport/apiclient"
	"github.com/archiveworks/chatexport/domain"
)

// batchSize is B from spec.md §5: up to this many messages are grouped
// before their referenced users are resolved together.
const batchSize = 50

// memberParallelism is P from spec.md §5: the bound on concurrent
// member look-ups within one batch.
const memberParallelism = 10

// consumeInBatches drains seq, invoking handle once per run of up to
// size messages, without materialising the whole channel in memory —
// only the current batch is buffered at any time. handle must not
// retain the slice it's given past the call, since the backing array
// is reused for the next batch.
func consumeInBatches(ctx context.Context, seq apiclient.Seq[domain.Message], size int, handle func([]domain.Message) error) error {
	if size <= 0 {
		size = batchSize
	}
	batch := make([]domain.Message, 0, size)
	var outerErr error
	seq(func(m domain.Message, err error) bool {
		if err != nil {
			outerErr = err
			return false
		}
		if ctx.Err() != nil {
			outerErr = ctx.Err()
			return false
		}
		batch = append(batch, m)
		if len(batch) < size {
			return true
		}
		if err := handle(batch); err != nil {
			outerErr = err
			return false
		}
		batch = batch[:0]
		return true
	})
	if outerErr != nil {
		return outerErr
	}
	if len(batch) > 0 {
		return handle(batch)
	}
	return nil
}
