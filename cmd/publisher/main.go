package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type sampleMessage struct {
	SubjectID      string  `json:"subject_id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
	Timestamp      int64   `json:"timestamp"`
}

// home zone used by the simulated subjects
const (
	homeLat = -6.2088
	homeLon = 106.8456
)

func main() {
	interval := 5 * time.Second
	if v := os.Getenv("UPDATE_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}
	if len(os.Args) > 1 {
		sec, err := strconv.Atoi(os.Args[1])
		if err != nil || sec <= 0 {
			fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
			os.Exit(1)
		}
		interval = time.Duration(sec) * time.Second
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("safetrack-mock-publisher")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	subjects := []string{"subject-1", "subject-2", "subject-3"}

	log.Printf("connected to %s, publishing every %s...", broker, interval)
	log.Printf("subjects: %v", subjects)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		sid := subjects[rand.Intn(len(subjects))]

		// 60% of samples near the home zone, the rest wander off so the
		// pipeline produces both entered and exited transitions
		lat := homeLat + (rand.Float64()-0.5)*0.0005 // ~50m drift
		lon := homeLon + (rand.Float64()-0.5)*0.0005
		if rand.Float64() >= 0.6 {
			lat = homeLat + 0.02 + rand.Float64()*0.01 // ~2km out
			lon = homeLon + 0.02 + rand.Float64()*0.01
		}

		msg := sampleMessage{
			SubjectID:      sid,
			Latitude:       lat,
			Longitude:      lon,
			AccuracyMeters: 5 + rand.Float64()*20,
			Timestamp:      time.Now().Unix(),
		}

		payload, _ := json.Marshal(msg)
		topic := fmt.Sprintf("/subjects/%s/location", sid)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()

		log.Printf("published to %s: %s", topic, payload)
	}
}
