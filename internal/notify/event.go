// Package notify is the trigger-event side-effect layer: the orchestrator
// publishes one TaskEvent per trigger, and a Dispatcher (run by the serve
// command in the same process) consumes those events and dispatches them
// to a channel-specific Handler
// (webhook or email). The scheduling core never imports this package; it
// only depends on the orchestrator.Notifier interface this package
// implements.
package notify

import (
	"time"

	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/orchestrator"
)

// TaskEvent is the wire representation of an orchestrator.TriggerEvent
// published to Kafka. It carries enough of the task/occurrence/execution
// snapshot for a handler to act without querying the repository again.
type TaskEvent struct {
	Task        domain.TaskDefinition  `json:"task"`
	Occurrence  domain.TaskOccurrence  `json:"occurrence"`
	Execution   domain.TaskExecution   `json:"execution"`
	Next        *domain.TaskOccurrence `json:"next,omitempty"`
	PublishedAt time.Time              `json:"published_at"`
}

func toWireEvent(e orchestrator.TriggerEvent, publishedAt time.Time) TaskEvent {
	return TaskEvent{
		Task:        e.Task,
		Occurrence:  e.Occurrence,
		Execution:   e.Execution,
		Next:        e.Next,
		PublishedAt: publishedAt,
	}
}
