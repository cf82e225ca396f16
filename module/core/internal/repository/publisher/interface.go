package publisher

import (
	"context"

	"github.com/safetrack/safetrack/module/core/domain"
)

type AlertPublisher interface {
	PublishAlert(ctx context.Context, event *domain.AlertEvent) error
}
