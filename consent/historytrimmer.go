package consent

import (
	"context"
	"time"

	"github.com/procyon-projects/chrono"
)

const trimInterval = time.Hour

/**
* Periodically caps the per-consent access history. The request path only
* appends, rotation happens out-of-band so that auditing never slows down or
* fails a request.
 */
func ScheduleHistoryTrimming(consentRepo ConsentRepository, limit int) (chrono.ScheduledTask, error) {
	if limit <= 0 {
		logger.Info("Access history trimming is disabled, the history will grow unbounded.")
		return nil, nil
	}
	taskScheduler := chrono.NewDefaultTaskScheduler()
	scheduledTask, err := taskScheduler.ScheduleAtFixedRate(func(ctx context.Context) {
		logger.Debugf("Trimming access histories to %d entries.", limit)
		consentRepo.TrimAccessHistory(limit)
	}, trimInterval)
	if err != nil {
		logger.Warnf("Was not able to schedule the history trimming. Err: %v", err)
		return nil, err
	}
	logger.Infof("Access histories will be capped at %d entries.", limit)
	return scheduledTask, nil
}
