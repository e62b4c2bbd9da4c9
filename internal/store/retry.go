package store

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// openBackend is replaced in tests to simulate a database that comes up late.
var openBackend = Open

// OpenWithRetry calls Open until it succeeds or attempts are exhausted,
// waiting interval between tries. The database container often comes up
// after the service does.
func OpenWithRetry(ctx context.Context, opts Options, attempts int, interval time.Duration, log *zap.Logger) (Store, error) {
	if attempts < 1 {
		attempts = 1
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	var st Store
	try := 0
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(interval))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		try++
		s, err := openBackend(ctx, opts)
		if err != nil {
			log.Warn("store connection attempt failed",
				zap.String("backend", opts.Backend),
				zap.Int("attempt", try),
				zap.Int("max_attempts", attempts),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		st = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("connected to store", zap.String("backend", opts.Backend), zap.Int("attempt", try))
	return st, nil
}
