// Package jobs runs periodic database maintenance.
package jobs

import (
	"context"
	"time"

	"github.com/mbolis/uss/database"
	"github.com/mbolis/uss/log"
	"github.com/robfig/cron/v3"
)

const cleanupSchedule = "@every 60m"

// PurgeExpiredTokens drops refresh tokens that can no longer be redeemed.
func PurgeExpiredTokens(ctx context.Context, tokens database.Tokens, now time.Time) error {
	n, err := tokens.DeleteExpiredTokens(ctx, now)
	if err != nil {
		return err
	}
	if n > 0 {
		log.WithField("count", n).Info("jobs.purge_tokens: expired refresh tokens removed")
	}
	return nil
}

// Start schedules the maintenance jobs. Stop the returned scheduler on shutdown.
func Start(tokens database.Tokens) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(log.Logger)))

	_, err := scheduler.AddFunc(cleanupSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		err := PurgeExpiredTokens(ctx, tokens, time.Now())
		if err != nil {
			log.Errorf("jobs.purge_tokens: %s", err)
		}
	})
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}
