package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/safetrack/safetrack/module/core/domain"
	"github.com/safetrack/safetrack/module/core/internal/repository/database"
)

// LocationSource is the external capability that produces location
// samples for one subject. The returned channel is closed when the
// watch context is cancelled or the source shuts down.
type LocationSource interface {
	Watch(ctx context.Context, subjectID string) (<-chan domain.LocationSample, error)
}

// AlertSink accepts generated alerts for delivery. Enqueue is
// synchronous and never fails.
type AlertSink interface {
	Enqueue(event domain.AlertEvent)
}

type subjectState struct {
	mu             sync.Mutex
	lastSample     *domain.LocationSample
	membership     map[string]bool
	trackingActive bool
	cancel         context.CancelFunc
}

// Tracker is the subject state store plus the per-subject ingestion
// loop. All reads and writes for one subject are serialized behind that
// subject's mutex; different subjects proceed fully in parallel.
type Tracker struct {
	zones  database.ZoneRepository
	source LocationSource
	alerts *AlertGenerator
	sink   AlertSink

	mu       sync.RWMutex
	subjects map[string]*subjectState
}

func NewTracker(zones database.ZoneRepository, source LocationSource, alerts *AlertGenerator, sink AlertSink) *Tracker {
	return &Tracker{
		zones:    zones,
		source:   source,
		alerts:   alerts,
		sink:     sink,
		subjects: make(map[string]*subjectState),
	}
}

func (t *Tracker) state(subjectID string) *subjectState {
	t.mu.RLock()
	st := t.subjects[subjectID]
	t.mu.RUnlock()
	return st
}

func (t *Tracker) ensureState(subjectID string) *subjectState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.subjects[subjectID]
	if !ok {
		st = &subjectState{membership: make(map[string]bool)}
		t.subjects[subjectID] = st
	}
	return st
}

// Start subscribes the subject to the location source and spawns its
// ingestion loop. Starting an already-started subject is a no-op.
func (t *Tracker) Start(ctx context.Context, subjectID string) error {
	st := t.ensureState(subjectID)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.trackingActive {
		return nil
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	samples, err := t.source.Watch(watchCtx, subjectID)
	if err != nil {
		cancel()
		return fmt.Errorf("watch %s: %w", subjectID, err)
	}

	st.trackingActive = true
	st.cancel = cancel
	go t.watchLoop(watchCtx, subjectID, samples)
	return nil
}

// Stop cancels the subject's watch subscription. Last-known state stays
// available for inspection; already-enqueued alerts keep retrying
// independently.
func (t *Tracker) Stop(subjectID string) error {
	st := t.state(subjectID)
	if st == nil {
		return domain.ErrSubjectUnknown
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.trackingActive {
		return nil
	}
	st.trackingActive = false
	st.cancel()
	st.cancel = nil
	return nil
}

func (t *Tracker) watchLoop(ctx context.Context, subjectID string, samples <-chan domain.LocationSample) {
	for {
		// cancellation is observed before the next sample is processed
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case sample, ok := <-samples:
			if !ok {
				return
			}
			if _, err := t.Process(ctx, sample); err != nil {
				// transient: skip this sample, keep the loop alive
				log.Printf("tracker %s: sample skipped: %v", subjectID, err)
			}
		}
	}
}

// Ingest evaluates one sample against the subject's zones, updates the
// stored membership and last sample, and returns the transitions. The
// subject must have been started.
func (t *Tracker) Ingest(ctx context.Context, sample domain.LocationSample) (domain.SubjectStatus, []domain.TransitionEvent, error) {
	st := t.state(sample.SubjectID)
	if st == nil {
		return domain.SubjectStatus{}, nil, domain.ErrNotTracking
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.trackingActive {
		return domain.SubjectStatus{}, nil, domain.ErrNotTracking
	}

	zones, err := t.zones.ListZones(ctx, sample.SubjectID)
	if err != nil {
		return domain.SubjectStatus{}, nil, fmt.Errorf("list zones: %w", err)
	}

	transitions := EvaluateZones(sample, zones, st.membership)
	st.lastSample = &sample
	return st.statusLocked(sample.SubjectID), transitions, nil
}

// Process runs the full pipeline for one sample: ingest, alert
// generation, enqueue. Both the watch loop and the HTTP ingest path go
// through here.
func (t *Tracker) Process(ctx context.Context, sample domain.LocationSample) (domain.SubjectStatus, error) {
	status, transitions, err := t.Ingest(ctx, sample)
	if err != nil {
		return domain.SubjectStatus{}, err
	}
	for _, tr := range transitions {
		t.sink.Enqueue(t.alerts.FromTransition(tr))
	}
	return status, nil
}

// Snapshot returns the best-known state for the subject, tracked or not.
func (t *Tracker) Snapshot(subjectID string) (domain.SubjectStatus, error) {
	st := t.state(subjectID)
	if st == nil {
		return domain.SubjectStatus{}, domain.ErrSubjectUnknown
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.statusLocked(subjectID), nil
}

func (s *subjectState) statusLocked(subjectID string) domain.SubjectStatus {
	membership := make(map[string]bool, len(s.membership))
	for id, inside := range s.membership {
		membership[id] = inside
	}
	var last *domain.LocationSample
	if s.lastSample != nil {
		cp := *s.lastSample
		last = &cp
	}
	return domain.SubjectStatus{
		SubjectID:      subjectID,
		TrackingActive: s.trackingActive,
		LastSample:     last,
		ZoneMembership: membership,
	}
}
