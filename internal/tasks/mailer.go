package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Mailer queues outgoing account emails
type Mailer interface {
	SendVerification(ctx context.Context, payload EmailPayload) error
	SendPasswordReset(ctx context.Context, payload EmailPayload) error
}

// Enqueuer is the subset of *asynq.Client the mailer needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueMailer hands emails to the asynq worker
type QueueMailer struct {
	client Enqueuer
}

// NewQueueMailer creates a mailer backed by an asynq client
func NewQueueMailer(client Enqueuer) *QueueMailer {
	return &QueueMailer{client: client}
}

// SendVerification enqueues an account verification email
func (m *QueueMailer) SendVerification(ctx context.Context, payload EmailPayload) error {
	task, err := NewVerificationEmailTask(payload)
	if err != nil {
		return err
	}
	if _, err := m.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		return fmt.Errorf("failed to enqueue verification email: %w", err)
	}
	return nil
}

// SendPasswordReset enqueues a password reset email on the critical queue
func (m *QueueMailer) SendPasswordReset(ctx context.Context, payload EmailPayload) error {
	task, err := NewPasswordResetEmailTask(payload)
	if err != nil {
		return err
	}
	if _, err := m.client.EnqueueContext(ctx, task, asynq.Queue(QueueCritical)); err != nil {
		return fmt.Errorf("failed to enqueue password reset email: %w", err)
	}
	return nil
}
