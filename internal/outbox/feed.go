package outbox

import (
	"context"

	"go-retail-core/internal/model"
	"go-retail-core/internal/ws"
)

// FeedPublisher pushes events to connected dashboards. A full feed queue
// drops the frame rather than failing delivery.
type FeedPublisher struct {
	hub *ws.Hub
}

func NewFeedPublisher(hub *ws.Hub) *FeedPublisher {
	return &FeedPublisher{hub: hub}
}

func (p *FeedPublisher) Name() string { return "ws" }

func (p *FeedPublisher) Publish(_ context.Context, ev model.OutboxEvent) error {
	p.hub.Publish(ev.EventType, []byte(ev.Payload))
	return nil
}
