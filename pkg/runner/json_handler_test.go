package runner_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandler_Output(t *testing.T) {
	var out bytes.Buffer
	h := runner.NewJSONHandler(strings.NewReader(""), &out)

	require.NoError(t, h.Output(context.Background(), []domain.OutboundMessage{
		{ConversationID: "c1", NodeID: "hi", Text: "Hello"},
	}))
	require.NoError(t, h.SystemOutput(context.Background(), "done"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"conversation_id":"c1","node_id":"hi","text":"Hello"}`, lines[0])
	assert.JSONEq(t, `{"system":"done"}`, lines[1])
}

func TestJSONHandler_Input(t *testing.T) {
	in := strings.NewReader("\"quoted\"\n{\"text\":\"object\"}\n\nplain text\nlast")
	h := runner.NewJSONHandler(in, io.Discard)
	ctx := context.Background()

	for _, want := range []string{"quoted", "object", "plain text", "last"} {
		got, err := h.Input(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
