package service

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/safetrack/safetrack/module/core/domain"
	"github.com/safetrack/safetrack/module/core/internal/metrics"
	"github.com/safetrack/safetrack/module/core/internal/repository/database"
)

// Deliverer performs one delivery attempt for one alert event against
// the subject's registered targets.
type Deliverer interface {
	Deliver(ctx context.Context, event domain.AlertEvent, targets []domain.NotificationTarget) error
}

type QueueConfig struct {
	BackoffBase time.Duration
	BackoffCap  time.Duration
	MaxAttempts int
}

// idleWake bounds how long the worker sleeps when nothing is scheduled.
const idleWake = time.Minute

type pendingEntry struct {
	entry   domain.QueueEntry
	backoff *backoff.ExponentialBackOff
}

// DeliveryQueue guarantees every enqueued alert is attempted until
// delivered or abandoned. Delivery is at-least-once; consumers dedupe
// on the event id. Entries survive a restart when a QueueStore is
// wired; backoff state restarts from the base interval on restore.
type DeliveryQueue struct {
	cfg     QueueConfig
	deliver Deliverer
	targets database.TargetRepository
	store   database.QueueStore // nil = memory only
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]*pendingEntry
	dead    []domain.DeadLetter
	online  bool

	wake chan struct{}
}

func NewDeliveryQueue(cfg QueueConfig, deliver Deliverer, targets database.TargetRepository, store database.QueueStore, m *metrics.Metrics) *DeliveryQueue {
	return &DeliveryQueue{
		cfg:     cfg,
		deliver: deliver,
		targets: targets,
		store:   store,
		metrics: m,
		pending: make(map[string]*pendingEntry),
		online:  true,
		wake:    make(chan struct{}, 1),
	}
}

func (q *DeliveryQueue) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.cfg.BackoffBase
	b.MaxInterval = q.cfg.BackoffCap
	b.MaxElapsedTime = 0 // bounded by attempt count, not elapsed time
	b.Reset()
	return b
}

// Enqueue accepts an alert for delivery. It never fails: the entry is
// held in memory and the durable store write is best-effort.
func (q *DeliveryQueue) Enqueue(event domain.AlertEvent) {
	entry := domain.QueueEntry{
		Event:         event,
		NextAttemptAt: time.Now(),
	}

	q.mu.Lock()
	q.pending[event.ID] = &pendingEntry{entry: entry, backoff: q.newBackoff()}
	q.mu.Unlock()

	if q.store != nil {
		if err := q.store.SaveEntry(context.Background(), &entry); err != nil {
			log.Printf("queue: persist entry %s: %v", event.ID, err)
		}
	}

	q.metrics.AlertsEnqueued.Inc()
	q.notify()
}

// Restore loads pending entries from the durable store, typically at
// boot before the worker starts.
func (q *DeliveryQueue) Restore(ctx context.Context) error {
	if q.store == nil {
		return nil
	}
	entries, err := q.store.ListPending(ctx)
	if err != nil {
		return err
	}

	q.mu.Lock()
	for _, e := range entries {
		e := e
		if _, exists := q.pending[e.Event.ID]; exists {
			continue
		}
		q.pending[e.Event.ID] = &pendingEntry{entry: e, backoff: q.newBackoff()}
	}
	q.mu.Unlock()

	q.notify()
	return nil
}

// SetOnline records a connectivity transition. Coming back online
// reschedules every pending entry for an immediate eager retry instead
// of waiting out its backoff.
func (q *DeliveryQueue) SetOnline(online bool) {
	q.mu.Lock()
	wasOnline := q.online
	q.online = online
	if online && !wasOnline {
		now := time.Now()
		for _, p := range q.pending {
			p.entry.NextAttemptAt = now
		}
	}
	q.mu.Unlock()

	if online {
		q.notify()
	}
}

// Entry returns the current queue state for one event id.
func (q *DeliveryQueue) Entry(eventID string) (domain.QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.pending[eventID]
	if !ok {
		return domain.QueueEntry{}, false
	}
	return p.entry, true
}

// PendingCount reports how many alerts are awaiting delivery.
func (q *DeliveryQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DeadLetters lists abandoned alerts, preferring the durable store when
// one is wired.
func (q *DeliveryQueue) DeadLetters(ctx context.Context) ([]domain.DeadLetter, error) {
	if q.store != nil {
		return q.store.ListDeadLetters(ctx)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.DeadLetter, len(q.dead))
	copy(out, q.dead)
	return out, nil
}

func (q *DeliveryQueue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run is the background worker loop. It blocks until ctx is cancelled.
func (q *DeliveryQueue) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(q.sleepFor())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
		q.processDue(ctx)
	}
}

func (q *DeliveryQueue) sleepFor() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	d := idleWake
	now := time.Now()
	for _, p := range q.pending {
		wait := p.entry.NextAttemptAt.Sub(now)
		if wait < d {
			d = wait
		}
	}
	if d < 0 {
		d = 0
	}
	return d
}

func (q *DeliveryQueue) processDue(ctx context.Context) {
	now := time.Now()

	q.mu.Lock()
	var due []*pendingEntry
	for _, p := range q.pending {
		if !p.entry.NextAttemptAt.After(now) {
			due = append(due, p)
		}
	}
	q.mu.Unlock()

	// oldest first keeps retry ordering roughly fair
	sort.Slice(due, func(i, j int) bool {
		return due[i].entry.Event.CreatedAt.Before(due[j].entry.Event.CreatedAt)
	})

	for _, p := range due {
		select {
		case <-ctx.Done():
			return
		default:
		}
		q.attempt(ctx, p)
	}
}

func (q *DeliveryQueue) attempt(ctx context.Context, p *pendingEntry) {
	event := p.entry.Event

	targets, err := q.targets.ListTargets(ctx, event.SubjectID)
	if err == nil {
		q.metrics.DeliveryAttempts.Inc()
		err = q.deliver.Deliver(ctx, event, targets)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err == nil {
		p.entry.Event.Delivered = true
		delete(q.pending, event.ID)
		q.metrics.AlertsDelivered.Inc()
		if q.store != nil {
			if derr := q.store.DeleteEntry(context.Background(), event.ID); derr != nil {
				log.Printf("queue: delete entry %s: %v", event.ID, derr)
			}
		}
		return
	}

	p.entry.AttemptCount++
	p.entry.Event.DeliveryAttempts = p.entry.AttemptCount
	p.entry.LastError = err.Error()

	if p.entry.AttemptCount >= q.cfg.MaxAttempts {
		q.abandonLocked(p)
		return
	}

	p.entry.NextAttemptAt = time.Now().Add(p.backoff.NextBackOff())
	log.Printf("queue: delivery %s attempt %d failed, retrying: %v", event.ID, p.entry.AttemptCount, err)
	if q.store != nil {
		snap := p.entry
		if serr := q.store.SaveEntry(context.Background(), &snap); serr != nil {
			log.Printf("queue: persist entry %s: %v", event.ID, serr)
		}
	}
}

func (q *DeliveryQueue) abandonLocked(p *pendingEntry) {
	letter := domain.DeadLetter{
		Event:       p.entry.Event,
		Attempts:    p.entry.AttemptCount,
		LastError:   p.entry.LastError,
		AbandonedAt: time.Now(),
	}
	delete(q.pending, p.entry.Event.ID)
	q.dead = append(q.dead, letter)
	q.metrics.AlertsAbandoned.Inc()
	log.Printf("queue: alert %s abandoned after %d attempts: %s", letter.Event.ID, letter.Attempts, letter.LastError)

	if q.store != nil {
		if err := q.store.SaveDeadLetter(context.Background(), &letter); err != nil {
			log.Printf("queue: persist dead letter %s: %v", letter.Event.ID, err)
		}
		if err := q.store.DeleteEntry(context.Background(), letter.Event.ID); err != nil {
			log.Printf("queue: delete entry %s: %v", letter.Event.ID, err)
		}
	}
}
