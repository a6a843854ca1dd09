package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TokenCleaner deletes refresh tokens that can no longer be used.
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// TokenCleanupJob periodically purges expired and revoked refresh tokens
type TokenCleanupJob struct {
	cleaner  TokenCleaner
	interval time.Duration
	log      zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

func NewTokenCleanupJob(cleaner TokenCleaner, interval time.Duration, log zerolog.Logger) *TokenCleanupJob {
	return &TokenCleanupJob{
		cleaner:  cleaner,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval.
func (j *TokenCleanupJob) Start(ctx context.Context) {
	go j.run(ctx)
	j.log.Info().Dur("interval", j.interval).Msg("token cleanup job started")
}

// Stop ends the job and waits for the running pass to finish.
func (j *TokenCleanupJob) Stop() {
	close(j.stopChan)
	<-j.done
	j.log.Info().Msg("token cleanup job stopped")
}

func (j *TokenCleanupJob) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-j.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single cleanup pass.
func (j *TokenCleanupJob) RunOnce(ctx context.Context) {
	deleted, err := j.cleaner.CleanupExpiredTokens(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("failed to clean up refresh tokens")
		return
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("expired refresh tokens removed")
	}
}
