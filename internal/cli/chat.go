package cli

import (
	"io"
	"log/slog"

	"github.com/aretw0/switchboard/internal/presentation/tui"
	"github.com/aretw0/switchboard/pkg/runner"
)

// chatWidth is the word wrap of rendered markdown.
const chatWidth = 80

// RunChat holds a conversation on the terminal until it ends, the input
// is exhausted or ctx is cancelled.
func RunChat(ctx *SignalContext, setup *Setup, opts ChatOptions, in io.Reader, out io.Writer, logger *slog.Logger) error {
	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(in, out)
	} else {
		styler := tui.NewStyler(opts.Color)
		render := func(text string) (string, error) { return styler.Bot(text), nil }
		if opts.Markdown {
			md, err := tui.NewRenderer(chatWidth)
			if err != nil {
				return err
			}
			render = md
		}
		handler = runner.NewTextHandler(in, out,
			runner.WithTextHandlerRenderer(render),
			runner.WithTextHandlerPrompt(styler.Prompt("> ")),
		)
		if opts.Banner {
			tui.PrintBanner(out)
		}
	}

	runnerOpts := []runner.Option{
		runner.WithEngine(setup.Engine),
		runner.WithInputHandler(handler),
		runner.WithLogger(logger),
		runner.WithVariables(opts.Variables),
		runner.WithIdleTimeout(opts.IdleTimeout),
	}
	if opts.ConversationID != "" {
		runnerOpts = append(runnerOpts, runner.WithConversationID(opts.ConversationID))
	}

	s, err := runner.NewRunner(runnerOpts...).Run(ctx)
	if s != nil {
		logger.Debug("chat finished", "conversation_id", s.ConversationID, "status", s.Status, "step", s.Step)
	}
	if sig := ctx.Signal(); sig != nil && !opts.JSON {
		printSystemMessage(out, "Interrupted (%s).", sig)
	}
	return handleExecutionError(err)
}
