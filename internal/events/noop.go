package events

import "context"

// NoopPublisher ничего не отправляет (NATS_URL не задан).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
