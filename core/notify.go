package core

import "context"

// Notification levels
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Notification is a one-shot, user-facing message ("toast").
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Notifier is any service that can surface notifications to the current user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
