package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/switchboard/internal/presentation/graph"
	"github.com/aretw0/switchboard/pkg/adapters/file"
	"github.com/aretw0/switchboard/pkg/ports"
)

// PrintGraph writes the Mermaid diagram of a flow file. With a session
// store and a conversation id the path of that conversation is highlighted.
func PrintGraph(ctx context.Context, w io.Writer, path string, store ports.SessionStore, conversationID string) error {
	def, err := file.ReadFile(path)
	if err != nil {
		return err
	}

	var overlay *graph.GraphOverlay
	if store != nil && conversationID != "" {
		s, err := store.Load(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("conversation %s: %w", conversationID, err)
		}
		overlay = graph.Overlay(s)
	}

	_, err = fmt.Fprintln(w, graph.GenerateMermaid(def, overlay))
	return err
}
