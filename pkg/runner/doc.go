/*
Package runner connects the Switchboard engine to the outside world.

  - Dispatcher: one worker per inbound event, for transports that deliver
    events from many conversations (webhooks, queues).
  - Runner: drives a single conversation through an IOHandler, used by the
    chat command to try flows from a terminal.
  - TextHandler / JSONHandler: IOHandler implementations for plain text and
    JSON-Lines.

# Usage

	r := runner.NewRunner(
		runner.WithEngine(engine),
		runner.WithConversationID("author"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if _, err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
