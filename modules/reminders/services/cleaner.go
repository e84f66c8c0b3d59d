package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

type Purger interface {
	Purge(ctx context.Context, sentBefore, deadBefore time.Time) error
}

// Cleaner periodically deletes delivered and dead reminders older than
// Retention.
type Cleaner struct {
	purger    Purger
	interval  time.Duration
	retention time.Duration
	logger    *logrus.Entry
}

func NewCleaner(purger Purger, interval, retention time.Duration, logger *logrus.Entry) *Cleaner {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Cleaner{purger: purger, interval: interval, retention: retention, logger: logger}
}

func (c *Cleaner) Run(ctx context.Context) error {
	if c.retention <= 0 {
		return nil
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := c.CleanOnce(ctx, time.Now()); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.logger.WithError(err).Warn("reminders: cleaner tick failed")
		}
	}
}

func (c *Cleaner) CleanOnce(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-c.retention)
	return c.purger.Purge(ctx, cutoff, cutoff)
}
