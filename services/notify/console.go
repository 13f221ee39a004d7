package notifysvc

import (
	"context"

	"github.com/darasahq/darasa/core"
)

// ConsoleNotifier logs notifications instead of surfacing them; used in
// DEV|TEST mode.
type ConsoleNotifier struct {
	logger core.Logger
}

var _ core.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(logger core.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n ConsoleNotifier) Notify(_ context.Context, notif core.Notification) {
	n.logger.Info("notification [" + notif.Level + "]: " + notif.Message)
}
