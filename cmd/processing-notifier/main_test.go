package main

import (
	"context"
	"testing"

	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/notifications"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	sent []notifications.Message
}

func (r *recordingNotifier) Send(_ context.Context, msg notifications.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func newEvent(t *testing.T, eventType string, data any) cloudevents.Event {
	t.Helper()
	e := cloudevents.NewEvent()
	e.SetID("evt-1")
	e.SetSource("com.documents.processing")
	e.SetType(eventType)
	require.NoError(t, e.SetData(cloudevents.ApplicationJSON, data))
	return e
}

func TestHandleDeliversProcessingFailed(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := notifications.NewService(notifier)

	e := newEvent(t, models.EventProcessingFailed, models.ProcessingFailedDetail{Key: "a1", Owner: "user-1", Filename: "Q1 Report.pdf"})
	require.NoError(t, handle(context.Background(), svc, e))
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Body, "Q1 Report.pdf")
}

func TestHandleDropsUnknownEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := notifications.NewService(notifier)

	e := newEvent(t, "DocumentDeleted", map[string]string{"key": "a1"})
	assert.NoError(t, handle(context.Background(), svc, e))
	assert.Empty(t, notifier.sent)
}
