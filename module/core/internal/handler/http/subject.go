package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/safetrack/safetrack/module/core/domain"
	"github.com/safetrack/safetrack/module/core/internal/notifier"
	"github.com/safetrack/safetrack/module/core/internal/repository/database"
)

type trackerService interface {
	Start(ctx context.Context, subjectID string) error
	Stop(subjectID string) error
	Process(ctx context.Context, sample domain.LocationSample) (domain.SubjectStatus, error)
	Snapshot(subjectID string) (domain.SubjectStatus, error)
}

type alertGenerator interface {
	TriggerEmergency(subjectID string, kind domain.AlertKind, loc domain.Coordinate) domain.AlertEvent
}

type deliveryQueue interface {
	Enqueue(event domain.AlertEvent)
	Entry(eventID string) (domain.QueueEntry, bool)
	DeadLetters(ctx context.Context) ([]domain.DeadLetter, error)
}

type SubjectHandler struct {
	tracker trackerService
	alerts  alertGenerator
	queue   deliveryQueue
	zones   database.ZoneRepository
	targets database.TargetRepository
}

func NewSubjectHandler(tracker trackerService, alerts alertGenerator, queue deliveryQueue, zones database.ZoneRepository, targets database.TargetRepository) *SubjectHandler {
	return &SubjectHandler{
		tracker: tracker,
		alerts:  alerts,
		queue:   queue,
		zones:   zones,
		targets: targets,
	}
}

func (h *SubjectHandler) Register(r *gin.RouterGroup) {
	r.POST("/subjects/:subject_id/tracking/start", h.StartTracking)
	r.POST("/subjects/:subject_id/tracking/stop", h.StopTracking)
	r.POST("/subjects/:subject_id/location", h.PostLocation)
	r.POST("/subjects/:subject_id/emergency", h.PostEmergency)
	r.GET("/subjects/:subject_id/status", h.GetStatus)
	r.POST("/subjects/:subject_id/zones", h.PostZone)
	r.GET("/subjects/:subject_id/zones", h.GetZones)
	r.POST("/subjects/:subject_id/targets", h.PostTarget)
	r.GET("/alerts/dead-letter", h.GetDeadLetters)
}

func (h *SubjectHandler) StartTracking(c *gin.Context) {
	subjectID := c.Param("subject_id")

	if err := h.tracker.Start(c.Request.Context(), subjectID); err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "location source unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start tracking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subject_id": subjectID, "tracking_active": true})
}

func (h *SubjectHandler) StopTracking(c *gin.Context) {
	subjectID := c.Param("subject_id")

	if err := h.tracker.Stop(subjectID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subject not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subject_id": subjectID, "tracking_active": false})
}

type locationRequest struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
	Speed          float64 `json:"speed"`
	Heading        float64 `json:"heading"`
	CapturedAt     int64   `json:"captured_at"`
}

func (h *SubjectHandler) PostLocation(c *gin.Context) {
	subjectID := c.Param("subject_id")

	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := validateLocationRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sample := domain.LocationSample{
		SubjectID: subjectID,
		Coordinate: domain.Coordinate{
			Lat:            req.Latitude,
			Lon:            req.Longitude,
			AccuracyMeters: req.AccuracyMeters,
		},
		CapturedAt: time.Unix(req.CapturedAt, 0),
		Speed:      req.Speed,
		Heading:    req.Heading,
	}

	status, err := h.tracker.Process(c.Request.Context(), sample)
	if err != nil {
		if errors.Is(err, domain.ErrNotTracking) {
			c.JSON(http.StatusConflict, gin.H{"error": "subject is not being tracked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process sample"})
		return
	}

	c.JSON(http.StatusOK, status)
}

type emergencyRequest struct {
	Type           string            `json:"type"`
	Latitude       *float64          `json:"latitude"`
	Longitude      *float64          `json:"longitude"`
	AdditionalData map[string]string `json:"additional_data"`
}

type emergencyResponse struct {
	EventID      string `json:"event_id"`
	Queued       bool   `json:"queued"`
	Delivered    bool   `json:"delivered"`
	AttemptCount int    `json:"attempt_count"`
}

func (h *SubjectHandler) PostEmergency(c *gin.Context) {
	subjectID := c.Param("subject_id")

	var req emergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	kind := domain.AlertEmergencyTriggered
	switch req.Type {
	case "", "triggered":
	case "confirmed":
		kind = domain.AlertEmergencyConfirmed
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be triggered or confirmed"})
		return
	}

	loc, ok := h.emergencyLocation(subjectID, &req)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location required: no last known position"})
		return
	}
	if !loc.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	event := h.alerts.TriggerEmergency(subjectID, kind, loc)
	h.queue.Enqueue(event)

	resp := emergencyResponse{EventID: event.ID, Queued: true}
	if entry, found := h.queue.Entry(event.ID); found {
		resp.Delivered = entry.Event.Delivered
		resp.AttemptCount = entry.AttemptCount
	}
	c.JSON(http.StatusAccepted, resp)
}

// emergencyLocation prefers an explicit coordinate and falls back to
// the subject's last known sample.
func (h *SubjectHandler) emergencyLocation(subjectID string, req *emergencyRequest) (domain.Coordinate, bool) {
	if req.Latitude != nil && req.Longitude != nil {
		return domain.Coordinate{Lat: *req.Latitude, Lon: *req.Longitude}, true
	}
	status, err := h.tracker.Snapshot(subjectID)
	if err != nil || status.LastSample == nil {
		return domain.Coordinate{}, false
	}
	return status.LastSample.Coordinate, true
}

func (h *SubjectHandler) GetStatus(c *gin.Context) {
	subjectID := c.Param("subject_id")

	status, err := h.tracker.Snapshot(subjectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subject not found"})
		return
	}

	c.JSON(http.StatusOK, status)
}

type zoneRequest struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

func (h *SubjectHandler) PostZone(c *gin.Context) {
	subjectID := c.Param("subject_id")

	var req zoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := validateZoneRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zone := domain.SafeZone{
		ID:           uuid.NewString(),
		SubjectID:    subjectID,
		Name:         req.Name,
		Center:       domain.Coordinate{Lat: req.Latitude, Lon: req.Longitude},
		RadiusMeters: req.RadiusMeters,
		Active:       true,
	}

	if err := h.zones.InsertZone(c.Request.Context(), &zone); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create zone"})
		return
	}

	c.JSON(http.StatusCreated, zone)
}

func (h *SubjectHandler) GetZones(c *gin.Context) {
	subjectID := c.Param("subject_id")

	zones, err := h.zones.ListZones(c.Request.Context(), subjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch zones"})
		return
	}

	c.JSON(http.StatusOK, zones)
}

type targetRequest struct {
	Channel string `json:"channel"`
	Address string `json:"address"`
}

func (h *SubjectHandler) PostTarget(c *gin.Context) {
	subjectID := c.Param("subject_id")

	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Channel != notifier.ChannelWebhook {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel must be webhook"})
		return
	}
	if req.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}

	target := domain.NotificationTarget{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Channel:   req.Channel,
		Address:   req.Address,
	}

	if err := h.targets.InsertTarget(c.Request.Context(), &target); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create target"})
		return
	}

	c.JSON(http.StatusCreated, target)
}

func (h *SubjectHandler) GetDeadLetters(c *gin.Context) {
	letters, err := h.queue.DeadLetters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch dead letters"})
		return
	}
	if letters == nil {
		letters = []domain.DeadLetter{}
	}

	c.JSON(http.StatusOK, letters)
}
