package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeVerificationEmail  = "email:verification"
	TypePasswordResetEmail = "email:password_reset"
)

// Queue names
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// EmailPayload is the common payload for all email tasks
type EmailPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Link   string `json:"link"`
}

// NewVerificationEmailTask creates a task to send an account verification email
func NewVerificationEmailTask(payload EmailPayload) (*asynq.Task, error) {
	return newEmailTask(TypeVerificationEmail, payload)
}

// NewPasswordResetEmailTask creates a task to send a password reset email
func NewPasswordResetEmailTask(payload EmailPayload) (*asynq.Task, error) {
	return newEmailTask(TypePasswordResetEmail, payload)
}

func newEmailTask(taskType string, payload EmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(taskType, data, asynq.MaxRetry(5)), nil
}

// ParseEmailPayload parses task payload from Asynq task
func ParseEmailPayload(task *asynq.Task) (EmailPayload, error) {
	var payload EmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
