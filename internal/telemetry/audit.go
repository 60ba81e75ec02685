package telemetry

import (
	"context"
	"log"
	"time"
)

// Publisher is the transport audit records leave through.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter records security-relevant operations: registrations, logins
// and message deletions. Transport trouble is logged and swallowed so the
// request path never blocks on audit.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	environment string
}

// AuditRecord is the wire form of one audit entry.
type AuditRecord struct {
	SchemaVersion int    `json:"schema_version"`
	Action        string `json:"action"`
	Severity      string `json:"severity"`
	Detail        string `json:"detail"`
	ActorID       *int   `json:"actor_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	Environment   string `json:"environment"`
	OccurredAt    string `json:"occurred_at"`
}

// NewAuditEmitter builds an emitter bound to one routing key.
func NewAuditEmitter(publisher Publisher, routingKey, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		environment: environment,
	}
}

// Record publishes one audit entry.
func (e *AuditEmitter) Record(ctx context.Context, action, severity, detail string, actorID *int, requestID string) {
	if e == nil || e.publisher == nil {
		return
	}

	record := AuditRecord{
		SchemaVersion: 1,
		Action:        action,
		Severity:      severity,
		Detail:        detail,
		ActorID:       actorID,
		RequestID:     requestID,
		Environment:   e.environment,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}

	if err := e.publisher.Publish(ctx, e.routingKey, record); err != nil {
		log.Printf("audit publish failed action=%s: %v", action, err)
	}
}
