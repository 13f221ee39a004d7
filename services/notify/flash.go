package notifysvc

import (
	"context"

	"github.com/kat-co/vala"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

// FlashNotifier persists notifications into the current session's namespace;
// view payloads pop and render them as toasts on the next screen.
type FlashNotifier struct {
	storage session.Storage
	logger  core.Logger
}

var _ core.Notifier = (*FlashNotifier)(nil)

func NewFlashNotifier(storage session.Storage, logger core.Logger) *FlashNotifier {
	vala.BeginValidation().Validate(
		vala.IsNotNil(storage, "storage"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &FlashNotifier{storage: storage, logger: logger}
}

func (n FlashNotifier) Notify(ctx context.Context, notif core.Notification) {
	sid, ok := session.SessionIDFromContext(ctx)
	if !ok {
		n.logger.Warn("flash notification dropped, no session in context: " + notif.Message)
		return
	}
	flash := session.Flash{Level: notif.Level, Message: notif.Message}
	if err := n.storage.PushFlash(ctx, sid, flash); err != nil {
		n.logger.Warn("pushing flash notification: "+err.Error(), err)
	}
}
