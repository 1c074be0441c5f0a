package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/noah-isme/completion-report-api/internal/models"
)

// Publish sends a report event to the queue.
func (rmq *RabbitMQBroker) Publish(ctx context.Context, evt models.ReportViewedEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal report event: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= 0 {
		return ctx.Err()
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		return nil, rmq.ch.PublishWithContext(
			ctx,
			"",            // exchange (default)
			rmq.queueName, // routing key == queue name
			false,         // mandatory
			false,         // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    evt.ID,
				Type:         evt.Name,
				Timestamp:    evt.OccurredAt,
				Body:         body,
			},
		)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", evt.Name, err)
	}
	return nil
}

// LogPublisher writes report events to the log when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs the publisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, evt models.ReportViewedEvent) error {
	p.logger.Info("report event",
		zap.String("event_id", evt.ID),
		zap.String("event", evt.Name),
		zap.Int64("course_id", evt.CourseID),
		zap.Int64("viewer_id", evt.ViewerID),
		zap.String("filter", string(evt.Filter)),
		zap.Time("occurred_at", evt.OccurredAt),
	)
	return nil
}
