package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// LoggingHooks returns lifecycle hooks writing one record per event.
// Node visits and steps log at Debug; action failures at Warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step",
				"conversation_id", e.ConversationID,
				"flow_id", e.FlowID,
				"kind", e.Kind,
				"status", e.Status,
				"visits", e.Visits,
				"duration", e.Duration,
			)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"conversation_id", e.ConversationID,
				"node_id", e.NodeID,
				"type", e.NodeType,
			)
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action_call",
				"conversation_id", e.ConversationID,
				"action", e.Action,
				"attempt", e.Attempt,
			)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			switch {
			case errors.Is(e.Err, ports.ErrDeferred):
				logger.InfoContext(ctx, "action_deferred", "conversation_id", e.ConversationID, "action", e.Action)
			case e.Err != nil:
				logger.WarnContext(ctx, "action_return",
					"conversation_id", e.ConversationID,
					"action", e.Action,
					"attempt", e.Attempt,
					"duration", e.Duration,
					"err", e.Err,
				)
			default:
				logger.DebugContext(ctx, "action_return",
					"conversation_id", e.ConversationID,
					"action", e.Action,
					"outcome", e.Outcome,
					"duration", e.Duration,
				)
			}
		},
	}
}
