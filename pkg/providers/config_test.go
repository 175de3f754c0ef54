package providers_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
actions:
  - name: ping
    type: process
    command: sh
    args: ["-c", "echo pong"]
  - name: createTicket
    type: webhook
    url: http://localhost:9/tickets
    timeout: 2s
`), 0o644))

	cfg, err := providers.LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Actions, 2)
	assert.Equal(t, "webhook", cfg.Actions[1].Type)

	missing, err := providers.LoadConfig(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing.Actions)
}

func TestBuild(t *testing.T) {
	requireShell(t)
	funcs := providers.NewFuncs()
	funcs.Register("local", func(context.Context, map[string]string) (domain.ActionResult, error) {
		return domain.ActionResult{Outcome: "ok"}, nil
	})

	router, err := providers.Build(&providers.ConfigFile{Actions: []providers.ActionConfig{
		{Name: "ping", Command: "sh", Args: []string{"-c", "echo pong"}},
	}}, "", funcs)
	require.NoError(t, err)

	res, err := router.Invoke(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", res.Outcome)

	res, err = router.Invoke(context.Background(), "local", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Outcome)
}

func TestBuild_Errors(t *testing.T) {
	_, err := providers.Build(&providers.ConfigFile{Actions: []providers.ActionConfig{
		{Name: ""},
		{Name: "a", Command: "x"},
		{Name: "a", Command: "x"},
		{Name: "b", Type: "webhook"},
		{Name: "c", Type: "carrier-pigeon"},
		{Name: "d", Type: "webhook", URL: "http://x", Timeout: "soon"},
	}}, "", nil)
	require.Error(t, err)
	for _, want := range []string{"without name", "declared twice", "url is required", "unknown type", "invalid timeout"} {
		assert.Contains(t, err.Error(), want)
	}
}
