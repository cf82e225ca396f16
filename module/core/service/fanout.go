package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/safetrack/safetrack/module/core/domain"
	"github.com/safetrack/safetrack/module/core/internal/repository/publisher"
)

// Notifier sends one alert to one registered target.
type Notifier interface {
	Notify(ctx context.Context, target domain.NotificationTarget, event domain.AlertEvent) error
}

// Fanout dispatches one alert to the backend sink and every registered
// target concurrently. The event counts as delivered only when all of
// them succeed; a partial failure is retried as a whole, which is safe
// because consumers dedupe on the event id.
type Fanout struct {
	sink     publisher.AlertPublisher
	notifier Notifier
	timeout  time.Duration
}

func NewFanout(sink publisher.AlertPublisher, notifier Notifier, timeout time.Duration) *Fanout {
	return &Fanout{sink: sink, notifier: notifier, timeout: timeout}
}

func (f *Fanout) Deliver(ctx context.Context, event domain.AlertEvent, targets []domain.NotificationTarget) error {
	// a plain group: one slow or failing target must not cancel the rest
	var g errgroup.Group

	g.Go(func() error {
		sinkCtx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		if err := f.sink.PublishAlert(sinkCtx, &event); err != nil {
			return fmt.Errorf("backend sink: %w", err)
		}
		return nil
	})

	for _, target := range targets {
		target := target
		g.Go(func() error {
			targetCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()
			if err := f.notifier.Notify(targetCtx, target, event); err != nil {
				return fmt.Errorf("target %s (%s): %w", target.ID, target.Channel, err)
			}
			return nil
		})
	}

	return g.Wait()
}
