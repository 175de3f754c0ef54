package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/switchboard/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyler_Plain(t *testing.T) {
	s := tui.NewStyler(false)
	assert.Equal(t, "hello", s.Bot("hello"))
	assert.Equal(t, "> ", s.Prompt("> "))
	assert.Equal(t, "[handed-off]", s.System("[handed-off]"))
}

func TestRenderer(t *testing.T) {
	render, err := tui.NewRenderer(80)
	require.NoError(t, err)

	out, err := render("**Order** shipped")
	require.NoError(t, err)
	assert.Contains(t, out, "Order")
	assert.Contains(t, out, "shipped")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
}
