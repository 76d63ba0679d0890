package capture

import (
	"context"
	"errors"
	"io"

	"golang.org/x/time/rate"

	"github.com/firegate/firegate/internal/monitoring"
	"github.com/firegate/firegate/internal/packet"
	"github.com/firegate/firegate/internal/ring"
)

// FeedOptions tunes the producer loop.
type FeedOptions struct {
	// Limiter paces enqueues when set; nil feeds as fast as the ring
	// accepts.
	Limiter *rate.Limiter

	// Metrics, when set, counts frames as they enter the ring.
	Metrics *monitoring.Metrics
}

// Feed streams every frame from src into dst, blocking on ring
// backpressure. It returns the number of frames enqueued. The caller
// still owns dst and decides when to close it; ctx cancellation stops
// the feed early.
func Feed(ctx context.Context, src *Reader, dst *ring.Ring, opts FeedOptions) (int, error) {
	frame := make([]byte, packet.Size)
	fed := 0

	for {
		if err := ctx.Err(); err != nil {
			return fed, err
		}

		err := src.Next(frame)
		if errors.Is(err, io.EOF) {
			return fed, nil
		}
		if err != nil {
			return fed, err
		}

		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				return fed, err
			}
		}

		if _, err := dst.Enqueue(frame); err != nil {
			return fed, err
		}
		fed++

		if opts.Metrics != nil {
			opts.Metrics.RecordEnqueue()
		}
	}
}
