package mocks

import (
	"context"
	"sync"
)

// PublisherMock records published audit events for assertions.
type PublisherMock struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

type PublishedEvent struct {
	RoutingKey string
	Event      any
}

func (p *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{RoutingKey: routingKey, Event: event})
	return nil
}

func (p *PublisherMock) Close() error {
	return nil
}
