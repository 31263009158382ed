package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartTokenCleaner purges expired deny list entries every interval until ctx
// is cancelled.
func StartTokenCleaner(ctx context.Context, db *sql.DB, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := PurgeRevokedTokens(ctx, db, time.Now())
				if err != nil {
					log.Error("failed to purge revoked tokens", zap.Error(err))
					continue
				}
				if n > 0 {
					log.Info("purged revoked tokens", zap.Int64("removed", n))
				}
			}
		}
	}()
}
