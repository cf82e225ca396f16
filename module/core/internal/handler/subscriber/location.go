package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/safetrack/safetrack/module/core/domain"
)

const sampleBuffer = 16

type sampleMessage struct {
	SubjectID      string  `json:"subject_id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
	Speed          float64 `json:"speed"`
	Heading        float64 `json:"heading"`
	Timestamp      int64   `json:"timestamp"`
}

// MQTTSource implements the tracker's LocationSource on top of a shared
// MQTT client, one subscription per watched subject.
type MQTTSource struct {
	client mqtt.Client

	mu      sync.Mutex
	watched map[string]struct{}
}

func NewMQTTSource(client mqtt.Client) *MQTTSource {
	return &MQTTSource{
		client:  client,
		watched: make(map[string]struct{}),
	}
}

func topicFor(subjectID string) string {
	return fmt.Sprintf("/subjects/%s/location", subjectID)
}

// Watch subscribes to the subject's location topic and streams decoded
// samples until ctx is cancelled. A disconnected client means tracking
// cannot start at all, which is surfaced as a permission error.
func (s *MQTTSource) Watch(ctx context.Context, subjectID string) (<-chan domain.LocationSample, error) {
	if !s.client.IsConnected() {
		return nil, domain.ErrPermissionDenied
	}

	s.mu.Lock()
	if _, ok := s.watched[subjectID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("subject %s already watched", subjectID)
	}
	s.watched[subjectID] = struct{}{}
	s.mu.Unlock()

	topic := topicFor(subjectID)
	samples := make(chan domain.LocationSample, sampleBuffer)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		sample, err := decodeSample(subjectID, msg.Payload())
		if err != nil {
			// transient: drop the sample, keep the subscription
			log.Printf("subscriber %s: %v", subjectID, err)
			return
		}
		select {
		case samples <- sample:
		case <-ctx.Done():
		default:
			log.Printf("subscriber %s: buffer full, sample dropped", subjectID)
		}
	}

	token := s.client.Subscribe(topic, 1, handler)
	if token.Wait() && token.Error() != nil {
		s.forget(subjectID)
		return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}

	go func() {
		<-ctx.Done()
		if t := s.client.Unsubscribe(topic); t.Wait() && t.Error() != nil {
			log.Printf("subscriber %s: unsubscribe: %v", subjectID, t.Error())
		}
		s.forget(subjectID)
		close(samples)
	}()

	return samples, nil
}

func (s *MQTTSource) forget(subjectID string) {
	s.mu.Lock()
	delete(s.watched, subjectID)
	s.mu.Unlock()
}

func decodeSample(subjectID string, payload []byte) (domain.LocationSample, error) {
	var raw sampleMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.LocationSample{}, fmt.Errorf("invalid sample message: %w", err)
	}
	if raw.SubjectID == "" {
		raw.SubjectID = subjectID
	}
	if err := validateSampleMessage(&raw); err != nil {
		return domain.LocationSample{}, fmt.Errorf("validation error: %w", err)
	}
	if raw.SubjectID != subjectID {
		return domain.LocationSample{}, fmt.Errorf("subject mismatch: got %s on %s topic", raw.SubjectID, subjectID)
	}

	return domain.LocationSample{
		SubjectID: raw.SubjectID,
		Coordinate: domain.Coordinate{
			Lat:            raw.Latitude,
			Lon:            raw.Longitude,
			AccuracyMeters: raw.AccuracyMeters,
		},
		CapturedAt: time.Unix(raw.Timestamp, 0),
		Speed:      raw.Speed,
		Heading:    raw.Heading,
	}, nil
}

func validateSampleMessage(msg *sampleMessage) error {
	if msg.SubjectID == "" {
		return fmt.Errorf("subject_id: required")
	}
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
