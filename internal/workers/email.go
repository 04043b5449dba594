package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/staffhub-dev/staffhub/internal/tasks"
)

// HandleEmail delivers a queued account email. Delivery is a structured log
// line carrying the link; a mail relay can tail these lines.
func HandleEmail(ctx context.Context, t *asynq.Task, logger zerolog.Logger) error {
	payload, err := tasks.ParseEmailPayload(t)
	if err != nil {
		// Malformed payloads will never succeed
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if payload.Email == "" || payload.Link == "" {
		return fmt.Errorf("%w: email task missing recipient or link", asynq.SkipRetry)
	}

	var subject string
	switch t.Type() {
	case tasks.TypeVerificationEmail:
		subject = "Verify your staffhub account"
	case tasks.TypePasswordResetEmail:
		subject = "Reset your staffhub password"
	default:
		return fmt.Errorf("%w: unknown email task type %q", asynq.SkipRetry, t.Type())
	}

	logger.Info().
		Str("task_type", t.Type()).
		Str("user_id", payload.UserID).
		Str("to", payload.Email).
		Str("subject", subject).
		Str("link", payload.Link).
		Msg("Email delivered")

	return nil
}
