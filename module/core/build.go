package core

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	handler "github.com/safetrack/safetrack/module/core/internal/handler/http"
	"github.com/safetrack/safetrack/module/core/internal/handler/subscriber"
	"github.com/safetrack/safetrack/module/core/internal/metrics"
	"github.com/safetrack/safetrack/module/core/internal/notifier"
	"github.com/safetrack/safetrack/module/core/internal/repository/database/postgres"
	"github.com/safetrack/safetrack/module/core/internal/repository/publisher/rabbitmq"
	"github.com/safetrack/safetrack/module/core/service"
)

type Options struct {
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	MaxAttempts     int
	DeliveryTimeout time.Duration
}

type Module struct {
	Tracker *service.Tracker
	Queue   *service.DeliveryQueue
	handler *handler.SubjectHandler
}

func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, opts Options) (*Module, error) {
	zoneRepo := postgres.NewZoneRepo(db)
	targetRepo := postgres.NewTargetRepo(db)
	queueStore := postgres.NewQueueStore(db)

	alertPub, err := rabbitmq.NewAlertPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("alert publisher: %w", err)
	}

	fanout := service.NewFanout(alertPub, notifier.NewWebhookNotifier(http.DefaultClient), opts.DeliveryTimeout)
	queue := service.NewDeliveryQueue(service.QueueConfig{
		BackoffBase: opts.BackoffBase,
		BackoffCap:  opts.BackoffCap,
		MaxAttempts: opts.MaxAttempts,
	}, fanout, targetRepo, queueStore, metrics.New())

	alerts := service.NewAlertGenerator()
	source := subscriber.NewMQTTSource(mqttClient)
	tracker := service.NewTracker(zoneRepo, source, alerts, queue)

	h := handler.NewSubjectHandler(tracker, alerts, queue, zoneRepo, targetRepo)

	return &Module{
		Tracker: tracker,
		Queue:   queue,
		handler: h,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
}

// StartWorker restores any persisted pending alerts and runs the
// delivery worker until ctx is cancelled.
func (m *Module) StartWorker(ctx context.Context) error {
	if err := m.Queue.Restore(ctx); err != nil {
		return fmt.Errorf("restore queue: %w", err)
	}
	go m.Queue.Run(ctx)
	return nil
}
