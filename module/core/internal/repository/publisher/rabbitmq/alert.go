package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/safetrack/safetrack/module/core/domain"
	"github.com/safetrack/safetrack/module/core/internal/repository/publisher"
)

var _ publisher.AlertPublisher = (*AlertPublisher)(nil)

const (
	exchangeName = "safetrack.alerts"
	queueName    = "safety_alerts"
)

type AlertPublisher struct {
	ch *amqp.Channel
}

func NewAlertPublisher(conn *amqp.Connection) (*AlertPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &AlertPublisher{ch: ch}, nil
}

type alertMessage struct {
	EventID   string           `json:"event_id"`
	SubjectID string           `json:"subject_id"`
	Kind      domain.AlertKind `json:"kind"`
	ZoneID    string           `json:"zone_id,omitempty"`
	Location  alertLocation    `json:"location"`
	CreatedAt int64            `json:"created_at"`
}

type alertLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p *AlertPublisher) PublishAlert(ctx context.Context, event *domain.AlertEvent) error {
	msg := alertMessage{
		EventID:   event.ID,
		SubjectID: event.SubjectID,
		Kind:      event.Kind,
		ZoneID:    event.ZoneID,
		Location: alertLocation{
			Latitude:  event.Location.Lat,
			Longitude: event.Location.Lon,
		},
		CreatedAt: event.CreatedAt.Unix(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return p.ch.PublishWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		// event_id doubles as the dedup key for at-least-once consumers
		MessageId: event.ID,
		Body:      body,
	})
}
