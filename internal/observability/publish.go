package observability

import "context"

// Publisher is the broker-facing surface lifecycle events leave through.
// The rabbitmq package provides the real implementation and the noop
// fallback for broker-less deployments.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher. A nil publisher
// turns PublishEvent into a no-op.
func SetPublisher(p Publisher) {
	defaultPublisher = p
}

// PublishEvent emits one envelope to the topic exchange. Failures are
// counted and returned, never fatal.
func PublishEvent(ctx context.Context, routingKey string, envelope EventEnvelope) error {
	if defaultPublisher == nil {
		return nil
	}
	if err := defaultPublisher.Publish(ctx, routingKey, envelope); err != nil {
		IncAMQPPublishError()
		return err
	}
	return nil
}
