package gcp

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"
)

// EventPublisher sends processing events as CloudEvents to an HTTP sink
// (an Eventarc channel, a broker ingress or the notifier function itself).
type EventPublisher struct {
	client cloudevents.Client
	source string
}

// NewEventPublisher builds a publisher that posts to sinkURL.
func NewEventPublisher(sinkURL, source string) (*EventPublisher, error) {
	if sinkURL == "" {
		return nil, fmt.Errorf("NewEventPublisher: sink URL cannot be empty")
	}
	client, err := cloudevents.NewClientHTTP(cloudevents.WithTarget(sinkURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}
	return &EventPublisher{client: client, source: source}, nil
}

// Publish sends one event whose type is detailType and whose JSON data is detail.
func (p *EventPublisher) Publish(ctx context.Context, detailType string, detail any) error {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(p.source)
	event.SetType(detailType)
	event.SetTime(time.Now().UTC())
	if err := event.SetData(cloudevents.ApplicationJSON, detail); err != nil {
		return fmt.Errorf("failed to encode %s event: %w", detailType, err)
	}

	result := p.client.Send(ctx, event)
	if cloudevents.IsUndelivered(result) {
		return fmt.Errorf("failed to deliver %s event: %w", detailType, result)
	}
	var httpResult *cehttp.Result
	if cloudevents.ResultAs(result, &httpResult) && httpResult.StatusCode >= 300 {
		return fmt.Errorf("event sink rejected %s event with status %d", detailType, httpResult.StatusCode)
	}
	return nil
}
