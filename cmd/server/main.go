package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safetrack/safetrack/config"
	"github.com/safetrack/safetrack/module/core"
)

func main() {
	cfg := config.Load()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer func() { _ = amqpConn.Close() }()

	// the queue is wired after MQTT connects, so buffer the first
	// connectivity callback through this indirection
	var setOnline func(bool)
	mqttClient, err := config.NewMQTT(cfg,
		func() {
			if setOnline != nil {
				setOnline(true)
			}
		},
		func(err error) {
			log.Printf("mqtt connection lost: %v", err)
			if setOnline != nil {
				setOnline(false)
			}
		},
	)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer mqttClient.Disconnect(250)

	coreModule, err := core.Build(db, amqpConn, mqttClient, core.Options{
		BackoffBase:     time.Duration(cfg.BackoffBaseMs) * time.Millisecond,
		BackoffCap:      time.Duration(cfg.BackoffCapMs) * time.Millisecond,
		MaxAttempts:     cfg.MaxAttempts,
		DeliveryTimeout: time.Duration(cfg.DeliveryTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("core module: %v", err)
	}
	setOnline = coreModule.Queue.SetOnline

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := coreModule.StartWorker(ctx); err != nil {
		log.Fatalf("delivery worker: %v", err)
	}

	r := gin.Default()

	health := config.NewHealthChecker(db, amqpConn, mqttClient)
	health.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	coreModule.RegisterRoutes(&r.RouterGroup)

	log.Printf("listening on :%s", cfg.HTTPPort)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("server: %v", err)
	}
}
