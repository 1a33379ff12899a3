package runner

import "context"

// BurstHook observes each burst. BurstStart may return a derived context
// that every unit of the burst inherits.
type BurstHook interface {
	BurstStart(ctx context.Context, burst uint64, count int) context.Context
	BurstDone(ctx context.Context, burst uint64, res Result)
}
