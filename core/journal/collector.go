package journal

import (
	"context"

	"github.com/kilianp07/evsync/core/events"
	"github.com/kilianp07/evsync/core/logger"
	"github.com/kilianp07/evsync/internal/eventbus"
)

// Collect appends every dispatch event read from sub to the store. It
// blocks until ctx is done or sub is closed.
func Collect(ctx context.Context, sub <-chan eventbus.Event, store Store, log logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			e, ok := ev.(events.DispatchEvent)
			if !ok {
				continue
			}
			if err := store.Append(ctx, FromDispatch(e)); err != nil {
				log.Errorf("journal append: %v", err)
			}
		}
	}
}
