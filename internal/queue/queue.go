package queue

import "context"

// Queue names for the external sinks. The production-log queue feeds the
// reporting service; the alert queue feeds the notification pipeline.
const (
	ProductionLogQueue = "production.logs"
	AlertQueue         = "machine.alerts"
)

// Publisher publishes domain event messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg EventMessage) error
	Close() error
}

// QueueNames returns every queue the engine publishes to.
func QueueNames() []string {
	return []string{ProductionLogQueue, AlertQueue}
}
