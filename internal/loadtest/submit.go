package loadtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/housecup/pkg/logger"
)

const progressInterval = time.Second

// submitAll posts every submission with cfg.Workers workers and returns the
// outcome of each, by index. Busy answers are retried with a growing pause;
// a submission still busy after the last retry is reported busy.
func submitAll(ctx context.Context, cfg Config, c *httpClient, subs []Submission, l logger.Logger) []outcome {
	l.Info(ctx, "submitting events",
		logger.Int("submissions", len(subs)), logger.Int("workers", cfg.Workers))

	outcomes := make([]outcome, len(subs))
	var done, failed int64
	var lastReport atomic.Int64
	lastReport.Store(time.Now().UnixNano())

	indexes := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				o := submitOne(ctx, cfg, c, subs[i], l)
				outcomes[i] = o
				n := atomic.AddInt64(&done, 1)
				if o == outcomeFailed {
					atomic.AddInt64(&failed, 1)
				}
				last := lastReport.Load()
				if cfg.Verbose && time.Since(time.Unix(0, last)) >= progressInterval &&
					lastReport.CompareAndSwap(last, time.Now().UnixNano()) {
					l.Info(ctx, "progress",
						logger.Int64("submitted", n),
						logger.Int("total", len(subs)),
						logger.Int64("failed", atomic.LoadInt64(&failed)))
				}
			}
		}()
	}

	go func() {
		defer close(indexes)
		for i := range subs {
			select {
			case <-ctx.Done():
				return
			case indexes <- i:
			}
		}
	}()

	wg.Wait()
	return outcomes
}

func submitOne(ctx context.Context, cfg Config, c *httpClient, s Submission, l logger.Logger) outcome {
	backoff := defaultBusyBackoff
	for attempt := 0; ; attempt++ {
		o, err := c.postEvent(ctx, s)
		if err != nil {
			if cfg.Verbose {
				l.Warn(ctx, "submission failed", logger.String("key", s.Key), logger.Error(err))
			}
			return outcomeFailed
		}
		if o != outcomeBusy || attempt >= cfg.BusyRetries {
			return o
		}
		select {
		case <-ctx.Done():
			return outcomeBusy
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
