package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/adil-adysh/plan-flow/internal/kafka"
	"github.com/adil-adysh/plan-flow/internal/telemetry"
)

// DLQTopic receives malformed events and events whose handler failed.
const DLQTopic = "taskflow.events.dlq"

// Dispatcher consumes taskflow.events and routes each event to the
// Handler registered for its task's NotifyChannel.
type Dispatcher struct {
	consumer kafka.Consumer
	producer kafka.Producer
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher builds a Dispatcher. producer is used only to forward
// malformed or failed messages to the dead-letter topic.
func NewDispatcher(consumer kafka.Consumer, producer kafka.Producer, registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{consumer: consumer, producer: producer, registry: registry, logger: logger}
}

// Run starts consuming. Blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.consumer.Subscribe(ctx, d.route)
}

func (d *Dispatcher) route(ctx context.Context, msg kafka.Message) error {
	ctx, span := otel.Tracer("notify").Start(ctx, "dispatcher.route")
	defer span.End()

	var event TaskEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		d.logger.Error("malformed trigger event, sending to DLQ", slog.String("error", err.Error()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed event")
		return d.toDLQ(ctx, msg.Value)
	}

	span.SetAttributes(
		attribute.String("task.id", event.Task.ID),
		attribute.String("occurrence.id", event.Occurrence.ID),
		attribute.String("notify.channel", event.Task.NotifyChannel),
	)

	log := d.logger.With(
		slog.String("task_id", event.Task.ID),
		slog.String("occurrence_id", event.Occurrence.ID),
	)

	if event.Task.NotifyChannel == "" {
		log.Debug("no notify channel configured, nothing to dispatch")
		telemetry.RecordNotifyDispatch("", "skipped")
		return nil
	}

	handler, err := d.registry.Get(event.Task.NotifyChannel)
	if err != nil {
		log.Error("unknown notify channel, sending to DLQ", slog.String("channel", event.Task.NotifyChannel))
		span.SetStatus(codes.Error, "unknown channel")
		telemetry.RecordNotifyDispatch(event.Task.NotifyChannel, "unknown_channel")
		return d.toDLQ(ctx, msg.Value)
	}

	if err := handler.Handle(ctx, event); err != nil {
		log.Error("handler failed, sending to DLQ", slog.String("error", err.Error()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
		telemetry.RecordNotifyDispatch(event.Task.NotifyChannel, "failed")
		return d.toDLQ(ctx, msg.Value)
	}

	log.Info("trigger event dispatched", slog.String("channel", event.Task.NotifyChannel))
	telemetry.RecordNotifyDispatch(event.Task.NotifyChannel, "success")
	return nil
}

func (d *Dispatcher) toDLQ(ctx context.Context, payload []byte) error {
	telemetry.RecordNotifyDLQ()
	if err := d.producer.Publish(ctx, DLQTopic, "", payload); err != nil {
		d.logger.Error("failed to publish to DLQ", slog.String("error", err.Error()))
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}
