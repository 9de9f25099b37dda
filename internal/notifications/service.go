package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

const titlePrefix = "[Document Ingest]"

// Service maps processing events to owner notifications.
type Service struct {
	notifier Notifier
}

// NewService returns a service that delivers through notifier. A nil
// notifier drops every message.
func NewService(notifier Notifier) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{notifier: notifier}
}

// Handle decodes an event body of the given type and sends the matching
// notification. Unknown types and malformed bodies are permanent errors.
func (s *Service) Handle(ctx context.Context, eventType string, data []byte) error {
	switch eventType {
	case models.EventProcessingFailed:
		var detail models.ProcessingFailedDetail
		if err := json.Unmarshal(data, &detail); err != nil {
			return faults.Permanent("notify", eventType, "failed to decode event", err)
		}
		return s.ProcessingFailed(ctx, detail)
	case models.EventCommentAdded:
		var detail models.CommentAddedDetail
		if err := json.Unmarshal(data, &detail); err != nil {
			return faults.Permanent("notify", eventType, "failed to decode event", err)
		}
		return s.CommentAdded(ctx, detail)
	default:
		return faults.Permanent("notify", eventType, "event not handled", nil)
	}
}

// ProcessingFailed tells the owner their upload could not be processed.
func (s *Service) ProcessingFailed(ctx context.Context, detail models.ProcessingFailedDetail) error {
	owner := strings.TrimSpace(detail.Owner)
	filename := strings.TrimSpace(detail.Filename)
	if owner == "" || filename == "" {
		return faults.Permanent("notify", models.EventProcessingFailed, "did not receive owner and filename with event", nil)
	}

	msg := Message{
		Title: fmt.Sprintf("%s Document Failed Processing", titlePrefix),
		Body:  fmt.Sprintf("Your file, %s, failed to process. It may be encrypted. Please update your file and try again.", filename),
		Tags:  []string{"documents", "processing", "failed"},
	}
	s.deliver(ctx, models.EventProcessingFailed, msg, slog.String("owner", owner), slog.String("key", detail.Key))
	return nil
}

// CommentAdded tells the owner someone commented on their document.
func (s *Service) CommentAdded(ctx context.Context, detail models.CommentAddedDetail) error {
	documentID := strings.TrimSpace(detail.DocumentID)
	commentID := strings.TrimSpace(detail.CommentID)
	if documentID == "" || commentID == "" {
		return faults.Permanent("notify", models.EventCommentAdded, "document id and comment id are required", nil)
	}

	msg := Message{
		Title: fmt.Sprintf("%s Comment left on document %s", titlePrefix, documentID),
		Body:  "Document Comment",
		Tags:  []string{"documents", "comment"},
	}
	s.deliver(ctx, models.EventCommentAdded, msg, slog.String("documentId", documentID), slog.String("commentId", commentID))
	return nil
}

func (s *Service) deliver(ctx context.Context, eventType string, msg Message, attrs ...any) {
	logCtx := slog.With(append([]any{slog.String("eventType", eventType)}, attrs...)...)
	if err := s.notifier.Send(ctx, msg); err != nil {
		logCtx.Error("Could not send notification", "error", err)
		return
	}
	logCtx.Info("Notification sent")
}
