package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safetrack/safetrack/module/core/domain"
)

type mockTracker struct {
	startFn    func(ctx context.Context, subjectID string) error
	stopFn     func(subjectID string) error
	processFn  func(ctx context.Context, sample domain.LocationSample) (domain.SubjectStatus, error)
	snapshotFn func(subjectID string) (domain.SubjectStatus, error)
}

func (m *mockTracker) Start(ctx context.Context, subjectID string) error {
	return m.startFn(ctx, subjectID)
}

func (m *mockTracker) Stop(subjectID string) error {
	return m.stopFn(subjectID)
}

func (m *mockTracker) Process(ctx context.Context, sample domain.LocationSample) (domain.SubjectStatus, error) {
	return m.processFn(ctx, sample)
}

func (m *mockTracker) Snapshot(subjectID string) (domain.SubjectStatus, error) {
	return m.snapshotFn(subjectID)
}

type mockAlerts struct {
	triggerFn func(subjectID string, kind domain.AlertKind, loc domain.Coordinate) domain.AlertEvent
}

func (m *mockAlerts) TriggerEmergency(subjectID string, kind domain.AlertKind, loc domain.Coordinate) domain.AlertEvent {
	return m.triggerFn(subjectID, kind, loc)
}

type mockQueue struct {
	enqueued      []domain.AlertEvent
	entryFn       func(eventID string) (domain.QueueEntry, bool)
	deadLettersFn func(ctx context.Context) ([]domain.DeadLetter, error)
}

func (m *mockQueue) Enqueue(event domain.AlertEvent) {
	m.enqueued = append(m.enqueued, event)
}

func (m *mockQueue) Entry(eventID string) (domain.QueueEntry, bool) {
	if m.entryFn != nil {
		return m.entryFn(eventID)
	}
	return domain.QueueEntry{}, false
}

func (m *mockQueue) DeadLetters(ctx context.Context) ([]domain.DeadLetter, error) {
	if m.deadLettersFn != nil {
		return m.deadLettersFn(ctx)
	}
	return nil, nil
}

type mockZoneRepo struct {
	insertFn func(ctx context.Context, zone *domain.SafeZone) error
	listFn   func(ctx context.Context, subjectID string) ([]domain.SafeZone, error)
}

func (m *mockZoneRepo) InsertZone(ctx context.Context, zone *domain.SafeZone) error {
	return m.insertFn(ctx, zone)
}

func (m *mockZoneRepo) ListZones(ctx context.Context, subjectID string) ([]domain.SafeZone, error) {
	return m.listFn(ctx, subjectID)
}

type mockTargetRepo struct {
	insertFn func(ctx context.Context, target *domain.NotificationTarget) error
	listFn   func(ctx context.Context, subjectID string) ([]domain.NotificationTarget, error)
}

func (m *mockTargetRepo) InsertTarget(ctx context.Context, target *domain.NotificationTarget) error {
	return m.insertFn(ctx, target)
}

func (m *mockTargetRepo) ListTargets(ctx context.Context, subjectID string) ([]domain.NotificationTarget, error) {
	return m.listFn(ctx, subjectID)
}

type handlerDeps struct {
	tracker *mockTracker
	alerts  *mockAlerts
	queue   *mockQueue
	zones   *mockZoneRepo
	targets *mockTargetRepo
}

func setupRouter(deps handlerDeps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewSubjectHandler(deps.tracker, deps.alerts, deps.queue, deps.zones, deps.targets)
	h.Register(r.Group(""))
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestStartTracking_Success(t *testing.T) {
	tracker := &mockTracker{
		startFn: func(_ context.Context, subjectID string) error {
			if subjectID != "subject-1" {
				t.Fatalf("unexpected subjectID: %s", subjectID)
			}
			return nil
		},
	}
	r := setupRouter(handlerDeps{tracker: tracker})

	w := postJSON(r, "/subjects/subject-1/tracking/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestStartTracking_PermissionDenied(t *testing.T) {
	tracker := &mockTracker{
		startFn: func(_ context.Context, _ string) error {
			return domain.ErrPermissionDenied
		},
	}
	r := setupRouter(handlerDeps{tracker: tracker})

	w := postJSON(r, "/subjects/subject-1/tracking/start", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestStopTracking_Unknown(t *testing.T) {
	tracker := &mockTracker{
		stopFn: func(_ string) error { return domain.ErrSubjectUnknown },
	}
	r := setupRouter(handlerDeps{tracker: tracker})

	w := postJSON(r, "/subjects/ghost/tracking/stop", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPostLocation_Success(t *testing.T) {
	var processed domain.LocationSample
	tracker := &mockTracker{
		processFn: func(_ context.Context, sample domain.LocationSample) (domain.SubjectStatus, error) {
			processed = sample
			return domain.SubjectStatus{
				SubjectID:      sample.SubjectID,
				TrackingActive: true,
				ZoneMembership: map[string]bool{"z1": true},
			}, nil
		},
	}
	r := setupRouter(handlerDeps{tracker: tracker})

	w := postJSON(r, "/subjects/subject-1/location", locationRequest{
		Latitude:   -6.2088,
		Longitude:  106.8456,
		CapturedAt: 1715003456,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if processed.SubjectID != "subject-1" {
		t.Errorf("expected subject-1, got %s", processed.SubjectID)
	}
	if !processed.CapturedAt.Equal(time.Unix(1715003456, 0)) {
		t.Errorf("unexpected captured_at: %v", processed.CapturedAt)
	}

	var resp domain.SubjectStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.ZoneMembership["z1"] {
		t.Error("expected zone status echoed in response")
	}
}

func TestPostLocation_OutOfRange(t *testing.T) {
	r := setupRouter(handlerDeps{tracker: &mockTracker{}})

	w := postJSON(r, "/subjects/subject-1/location", locationRequest{
		Latitude:   91,
		Longitude:  0,
		CapturedAt: 1715003456,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPostLocation_NotTracking(t *testing.T) {
	tracker := &mockTracker{
		processFn: func(_ context.Context, _ domain.LocationSample) (domain.SubjectStatus, error) {
			return domain.SubjectStatus{}, domain.ErrNotTracking
		},
	}
	r := setupRouter(handlerDeps{tracker: tracker})

	w := postJSON(r, "/subjects/subject-1/location", locationRequest{
		Latitude:   0,
		Longitude:  0,
		CapturedAt: 1715003456,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestPostEmergency_QueuedImmediately(t *testing.T) {
	alerts := &mockAlerts{
		triggerFn: func(subjectID string, kind domain.AlertKind, loc domain.Coordinate) domain.AlertEvent {
			return domain.AlertEvent{ID: "ev1", SubjectID: subjectID, Kind: kind, Location: loc}
		},
	}
	queue := &mockQueue{
		entryFn: func(eventID string) (domain.QueueEntry, bool) {
			return domain.QueueEntry{Event: domain.AlertEvent{ID: eventID}}, true
		},
	}
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, alerts: alerts, queue: queue})

	lat, lon := -6.2088, 106.8456
	w := postJSON(r, "/subjects/subject-1/emergency", emergencyRequest{
		Type:     "triggered",
		Latitude: &lat, Longitude: &lon,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var resp emergencyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.EventID != "ev1" || !resp.Queued {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Delivered || resp.AttemptCount != 0 {
		t.Errorf("expected undelivered with 0 attempts, got %+v", resp)
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued event, got %d", len(queue.enqueued))
	}
}

func TestPostEmergency_FallsBackToLastKnownLocation(t *testing.T) {
	tracker := &mockTracker{
		snapshotFn: func(_ string) (domain.SubjectStatus, error) {
			return domain.SubjectStatus{
				LastSample: &domain.LocationSample{
					Coordinate: domain.Coordinate{Lat: 1.5, Lon: 2.5},
				},
			}, nil
		},
	}
	var gotLoc domain.Coordinate
	alerts := &mockAlerts{
		triggerFn: func(subjectID string, kind domain.AlertKind, loc domain.Coordinate) domain.AlertEvent {
			gotLoc = loc
			return domain.AlertEvent{ID: "ev1", SubjectID: subjectID, Kind: kind, Location: loc}
		},
	}
	r := setupRouter(handlerDeps{tracker: tracker, alerts: alerts, queue: &mockQueue{}})

	w := postJSON(r, "/subjects/subject-1/emergency", emergencyRequest{Type: "confirmed"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if gotLoc.Lat != 1.5 || gotLoc.Lon != 2.5 {
		t.Errorf("expected last-known location, got %+v", gotLoc)
	}
}

func TestPostEmergency_NoLocationAvailable(t *testing.T) {
	tracker := &mockTracker{
		snapshotFn: func(_ string) (domain.SubjectStatus, error) {
			return domain.SubjectStatus{}, domain.ErrSubjectUnknown
		},
	}
	r := setupRouter(handlerDeps{tracker: tracker, alerts: &mockAlerts{}, queue: &mockQueue{}})

	w := postJSON(r, "/subjects/ghost/emergency", emergencyRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPostEmergency_InvalidType(t *testing.T) {
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, alerts: &mockAlerts{}, queue: &mockQueue{}})

	w := postJSON(r, "/subjects/subject-1/emergency", emergencyRequest{Type: "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetStatus_Success(t *testing.T) {
	tracker := &mockTracker{
		snapshotFn: func(subjectID string) (domain.SubjectStatus, error) {
			return domain.SubjectStatus{
				SubjectID:      subjectID,
				TrackingActive: true,
				ZoneMembership: map[string]bool{"z1": false},
			}, nil
		},
	}
	r := setupRouter(handlerDeps{tracker: tracker})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/subjects/subject-1/status", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp domain.SubjectStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.SubjectID != "subject-1" || !resp.TrackingActive {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGetStatus_Unknown(t *testing.T) {
	tracker := &mockTracker{
		snapshotFn: func(_ string) (domain.SubjectStatus, error) {
			return domain.SubjectStatus{}, domain.ErrSubjectUnknown
		},
	}
	r := setupRouter(handlerDeps{tracker: tracker})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/subjects/ghost/status", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPostZone_Success(t *testing.T) {
	var inserted *domain.SafeZone
	zones := &mockZoneRepo{
		insertFn: func(_ context.Context, zone *domain.SafeZone) error {
			inserted = zone
			return nil
		},
	}
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, zones: zones})

	w := postJSON(r, "/subjects/subject-1/zones", zoneRequest{
		Name:         "home",
		Latitude:     -6.2088,
		Longitude:    106.8456,
		RadiusMeters: 500,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if inserted == nil {
		t.Fatal("expected InsertZone to be called")
	}
	if inserted.ID == "" {
		t.Error("expected generated zone id")
	}
	if !inserted.Active {
		t.Error("expected new zone active")
	}
	if inserted.SubjectID != "subject-1" {
		t.Errorf("expected subject-1, got %s", inserted.SubjectID)
	}
}

func TestPostZone_InvalidRadius(t *testing.T) {
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, zones: &mockZoneRepo{}})

	w := postJSON(r, "/subjects/subject-1/zones", zoneRequest{
		Name:         "home",
		Latitude:     0,
		Longitude:    0,
		RadiusMeters: 0,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetZones_Success(t *testing.T) {
	zones := &mockZoneRepo{
		listFn: func(_ context.Context, subjectID string) ([]domain.SafeZone, error) {
			return []domain.SafeZone{{ID: "z1", SubjectID: subjectID, Name: "home"}}, nil
		},
	}
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, zones: zones})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/subjects/subject-1/zones", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp []domain.SafeZone
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != "z1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestPostTarget_Success(t *testing.T) {
	var inserted *domain.NotificationTarget
	targets := &mockTargetRepo{
		insertFn: func(_ context.Context, target *domain.NotificationTarget) error {
			inserted = target
			return nil
		},
	}
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, targets: targets})

	w := postJSON(r, "/subjects/subject-1/targets", targetRequest{
		Channel: "webhook",
		Address: "https://example.com/hook",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if inserted == nil || inserted.ID == "" {
		t.Fatal("expected target inserted with generated id")
	}
}

func TestPostTarget_UnsupportedChannel(t *testing.T) {
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, targets: &mockTargetRepo{}})

	w := postJSON(r, "/subjects/subject-1/targets", targetRequest{
		Channel: "sms",
		Address: "+15550100",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetDeadLetters_Success(t *testing.T) {
	queue := &mockQueue{
		deadLettersFn: func(_ context.Context) ([]domain.DeadLetter, error) {
			return []domain.DeadLetter{{
				Event:     domain.AlertEvent{ID: "ev1", Kind: domain.AlertZoneExited},
				Attempts:  10,
				LastError: "network error",
			}}, nil
		},
	}
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, queue: queue})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/alerts/dead-letter", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp []domain.DeadLetter
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 1 || resp[0].Event.ID != "ev1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGetDeadLetters_EmptyList(t *testing.T) {
	queue := &mockQueue{
		deadLettersFn: func(_ context.Context) ([]domain.DeadLetter, error) {
			return nil, nil
		},
	}
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, queue: queue})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/alerts/dead-letter", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "[]" {
		t.Errorf("expected empty json array, got %s", w.Body.String())
	}
}

func TestGetDeadLetters_Error(t *testing.T) {
	queue := &mockQueue{
		deadLettersFn: func(_ context.Context) ([]domain.DeadLetter, error) {
			return nil, errors.New("db error")
		},
	}
	r := setupRouter(handlerDeps{tracker: &mockTracker{}, queue: queue})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/alerts/dead-letter", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
