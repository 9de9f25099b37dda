package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/notifications"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	service *notifications.Service
	once    sync.Once
	initErr error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("NotifyProcessing", notifyProcessing)
}

// main is required by the Go Functions Framework.
func main() {}

// notifyProcessing receives ProcessingFailed and CommentAdded events and
// notifies the document owner.
func notifyProcessing(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		var notifier notifications.Notifier
		notifier, initErr = notifications.LoadNotifier()
		if initErr == nil {
			service = notifications.NewService(notifier)
		}
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	return handle(ctx, service, e)
}

func handle(ctx context.Context, svc *notifications.Service, e cloudevents.Event) error {
	logCtx := slog.With("eventId", e.ID(), "eventType", e.Type(), "eventSource", e.Source())
	if err := svc.Handle(ctx, e.Type(), e.Data()); err != nil {
		logCtx.Error("Notification event not handled", "error", err, "data", string(e.Data()))
		if faults.IsPermanent(err) {
			// Redelivering a malformed event cannot succeed.
			return nil
		}
		return err
	}
	return nil
}
