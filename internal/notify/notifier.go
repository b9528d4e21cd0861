package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/adil-adysh/plan-flow/internal/kafka"
	"github.com/adil-adysh/plan-flow/internal/orchestrator"
)

// EventsTopic is the topic the orchestrator publishes trigger events to.
const EventsTopic = "taskflow.events"

// clockFunc lets tests stamp PublishedAt deterministically without pulling
// in the shared clock seam (this package has no use for a fake beyond
// this one field).
type clockFunc func() time.Time

// KafkaNotifier implements orchestrator.Notifier by publishing a TaskEvent
// to Kafka after every trigger. Per the orchestrator's contract this never
// returns an error to the caller: a publish failure is logged and
// swallowed, matching the "fire-and-forget" guarantee the trigger pipeline
// makes to its Notifier.
type KafkaNotifier struct {
	producer kafka.Producer
	logger   *slog.Logger
	now      clockFunc
}

var _ orchestrator.Notifier = (*KafkaNotifier)(nil)

// NewKafkaNotifier wraps a kafka.Producer as an orchestrator.Notifier.
func NewKafkaNotifier(producer kafka.Producer, logger *slog.Logger) *KafkaNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaNotifier{producer: producer, logger: logger, now: time.Now}
}

func (n *KafkaNotifier) NotifyTriggered(ctx context.Context, event orchestrator.TriggerEvent) {
	wire := toWireEvent(event, n.now())
	data, err := json.Marshal(wire)
	if err != nil {
		n.logger.Error("marshal trigger event", slog.String("error", err.Error()))
		return
	}
	if err := n.producer.Publish(ctx, EventsTopic, event.Occurrence.ID, data); err != nil {
		n.logger.Error("publish trigger event",
			slog.String("occurrence_id", event.Occurrence.ID),
			slog.String("error", err.Error()),
		)
	}
}
