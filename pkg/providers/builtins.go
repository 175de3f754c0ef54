package providers

import (
	"context"
	"log/slog"

	"github.com/aretw0/switchboard/pkg/domain"
)

// TransferToAgent is the builtin hand-off action.
const TransferToAgent = "transferToAgent"

// RegisterBuiltins adds the actions every deployment has. The hand-off
// action only records the request; the conversation is picked up by an
// operator through the session API.
func RegisterBuiltins(funcs *Funcs, logger *slog.Logger) {
	funcs.Register(TransferToAgent, func(ctx context.Context, vars map[string]string) (domain.ActionResult, error) {
		if logger != nil {
			logger.InfoContext(ctx, "agent transfer requested", "reason", vars["reason"])
		}
		return domain.ActionResult{Outcome: "ok"}, nil
	})
}
