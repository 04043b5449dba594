package workers

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/staffhub-dev/staffhub/internal/models"
)

// cronParser accepts the standard 5-field format: minute hour day-of-month month day-of-week
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// StartCleanupScheduler runs PurgeExpired on the given cron schedule until Stop is called on the result
func StartCleanupScheduler(schedule string, db *gorm.DB, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithParser(cronParser))

	_, err := c.AddFunc(schedule, func() {
		if _, _, err := PurgeExpired(db, time.Now(), logger); err != nil {
			logger.Error().Err(err).Msg("Token cleanup failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.Info().Str("schedule", schedule).Msg("Token cleanup scheduler started")

	return c, nil
}

// PurgeExpired deletes revocation entries for tokens that have expired on
// their own, and emailed action tokens that are expired or already used
func PurgeExpired(db *gorm.DB, now time.Time, logger zerolog.Logger) (revoked, actions int64, err error) {
	res := db.Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, 0, fmt.Errorf("failed to purge revoked tokens: %w", res.Error)
	}
	revoked = res.RowsAffected

	res = db.Where("expires_at < ? OR used_at IS NOT NULL", now).Delete(&models.ActionToken{})
	if res.Error != nil {
		return revoked, 0, fmt.Errorf("failed to purge action tokens: %w", res.Error)
	}
	actions = res.RowsAffected

	logger.Info().
		Int64("revoked_tokens", revoked).
		Int64("action_tokens", actions).
		Msg("Expired tokens purged")

	return revoked, actions, nil
}

// NextRun reports when the schedule fires next after from, or nil if the expression is invalid
func NextRun(schedule string, from time.Time) *time.Time {
	if schedule == "" {
		return nil
	}

	parsed, err := cronParser.Parse(schedule)
	if err != nil {
		return nil
	}

	next := parsed.Next(from)
	return &next
}
