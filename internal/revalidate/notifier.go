package revalidate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/lingkungan/internal/core/events"
	"github.com/frahmantamala/lingkungan/pkg/logger"
)

// Notifier invalidates cached views after mutations.
type Notifier struct {
	cache  *ViewCache
	logger *slog.Logger
}

func NewNotifier(cache *ViewCache, lg *slog.Logger) *Notifier {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Notifier{cache: cache, logger: lg}
}

// Invalidate drops every cached view under routePath.
func (n *Notifier) Invalidate(routePath string) int {
	removed := n.cache.DeletePrefix(routePath)
	n.logger.Debug("views invalidated", "route_path", routePath, "removed", removed)
	return removed
}

func (n *Notifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeApprovalStatusChanged, n.HandleApprovalStatusChanged)
}

func (n *Notifier) HandleApprovalStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ApprovalStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}
	removed := n.Invalidate(e.RoutePath)
	logger.From(ctx, n.logger).Info("approval views revalidated",
		"approval_id", e.ApprovalID,
		"status", e.Status,
		"route_path", e.RoutePath,
		"removed", removed)
	return nil
}
