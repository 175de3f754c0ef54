package cli_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/switchboard/internal/cli"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/internal/presentation/tui"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const welcome = `
id: welcome
name: Welcome Flow
active: true
nodes:
  - id: start
    type: start
    next: greet
  - id: greet
    type: decision
    content: "Hi {name}! Sales or Support?"
    next:
      Sales: sales
      Support: support
  - id: sales
    type: message
    content: Connecting you to sales.
    next: end
  - id: support
    type: action
    content: transferToAgent
    next: end
  - id: end
    type: end
`

const broken = `
id: broken
nodes:
  - id: start
    type: start
    next: nowhere
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func engineOptions(t *testing.T) cli.EngineOptions {
	dir := t.TempDir()
	writeFile(t, dir, "welcome.yaml", welcome)

	opts := cli.DefaultEngineOptions()
	opts.FlowsPath = dir
	opts.ActionsPath = filepath.Join(dir, "actions.yaml")
	return opts
}

func TestCreateEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("directory in memory", func(t *testing.T) {
		setup, err := cli.CreateEngine(ctx, engineOptions(t), logging.NewNop(), domain.LifecycleHooks{})
		require.NoError(t, err)
		defer setup.Close()

		msgs, s, err := setup.Engine.Handle(ctx, domain.UserText("c1", "hello"))
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "Hi ! Sales or Support?", msgs[0].Text)
		assert.Equal(t, "welcome", s.FlowID)
	})

	t.Run("single file is activated", func(t *testing.T) {
		dir := t.TempDir()
		opts := cli.DefaultEngineOptions()
		opts.FlowsPath = writeFile(t, dir, "welcome.yaml", welcome)
		opts.ActionsPath = filepath.Join(dir, "missing.yaml")

		setup, err := cli.CreateEngine(ctx, opts, logging.NewNop(), domain.LifecycleHooks{})
		require.NoError(t, err)
		defer setup.Close()

		active, err := setup.Engine.Registry().Active()
		require.NoError(t, err)
		assert.Equal(t, "welcome", active.ID())
	})

	t.Run("redis with encryption and masking", func(t *testing.T) {
		mr := miniredis.RunT(t)
		opts := engineOptions(t)
		opts.RedisAddr = mr.Addr()
		opts.MaskVars = []string{"^cpf$"}
		opts.EncryptionKey = hex.EncodeToString(bytes.Repeat([]byte{7}, 32))
		opts.LockTTL = 2 * time.Minute

		setup, err := cli.CreateEngine(ctx, opts, logging.NewNop(), domain.LifecycleHooks{})
		require.NoError(t, err)
		defer setup.Close()
		assert.Equal(t, 2*time.Minute, setup.Engine.LockTTL())

		_, err = setup.Engine.Start(ctx, "c2", map[string]string{"name": "Ana", "cpf": "123"})
		require.NoError(t, err)

		s, err := setup.Engine.Session(ctx, "c2")
		require.NoError(t, err)
		assert.Equal(t, "Ana", s.Context["name"])
		assert.Equal(t, "***", s.Context["cpf"])

		checked := 0
		for _, k := range mr.Keys() {
			if strings.Contains(k, "c2") && mr.Type(k) == "string" {
				raw, err := mr.Get(k)
				require.NoError(t, err)
				assert.NotContains(t, raw, "Ana")
				checked++
			}
		}
		assert.Equal(t, 1, checked)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*cli.EngineOptions)
		}{
			{"missing flows", func(o *cli.EngineOptions) { o.FlowsPath = filepath.Join(t.TempDir(), "none") }},
			{"unknown active flow", func(o *cli.EngineOptions) { o.Activate = "ghost" }},
			{"bad encryption key", func(o *cli.EngineOptions) { o.EncryptionKey = "zz" }},
			{"bad mask pattern", func(o *cli.EngineOptions) { o.MaskVars = []string{"("} }},
			{"redis unreachable", func(o *cli.EngineOptions) { o.RedisAddr = "127.0.0.1:1" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				opts := engineOptions(t)
				tt.mutate(&opts)
				_, err := cli.CreateEngine(ctx, opts, logging.NewNop(), domain.LifecycleHooks{})
				assert.Error(t, err)
			})
		}
	})
}

func TestRunChat_JSON(t *testing.T) {
	setup, err := cli.CreateEngine(context.Background(), engineOptions(t), logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	defer setup.Close()

	ctx := cli.NewSignalContext(context.Background())
	defer ctx.Cancel()

	var out bytes.Buffer
	err = cli.RunChat(ctx, setup, cli.ChatOptions{
		ConversationID: "term",
		Variables:      map[string]string{"name": "Ana"},
		JSON:           true,
	}, strings.NewReader("Sales\n"), &out, logging.NewNop())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Hi Ana! Sales or Support?")
	assert.Contains(t, lines[1], "Connecting you to sales.")
	assert.Contains(t, lines[2], `"system":"conversation completed"`)
	assert.Nil(t, ctx.Signal())
}

func TestRunChat_Text(t *testing.T) {
	setup, err := cli.CreateEngine(context.Background(), engineOptions(t), logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	defer setup.Close()

	ctx := cli.NewSignalContext(context.Background())
	defer ctx.Cancel()

	var out bytes.Buffer
	err = cli.RunChat(ctx, setup, cli.ChatOptions{}, strings.NewReader("what\nhm\nno\n"), &out, logging.NewNop())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Sales or Support?")
	assert.Contains(t, out.String(), "[System] conversation handed off to an agent")
}

func TestValidatePaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "welcome.yaml", welcome)
	writeFile(t, dir, "broken.yaml", broken)
	writeFile(t, dir, "notes.txt", "ignored")

	var out bytes.Buffer
	report, err := cli.ValidatePaths(&out, tui.NewStyler(false), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Files)
	assert.Equal(t, 1, report.Invalid)
	assert.False(t, report.Valid())
	assert.Contains(t, out.String(), `node "start": transition target "nowhere" does not exist`)
	assert.Contains(t, out.String(), "(welcome, 5 nodes)")
	assert.Contains(t, out.String(), "variables: name")

	_, err = cli.ValidatePaths(&out, tui.NewStyler(false), []string{filepath.Join(dir, "none")})
	assert.Error(t, err)
}

func TestPrintGraph(t *testing.T) {
	ctx := context.Background()
	opts := engineOptions(t)
	setup, err := cli.CreateEngine(ctx, opts, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	defer setup.Close()

	path := filepath.Join(opts.FlowsPath, "welcome.yaml")

	var out bytes.Buffer
	require.NoError(t, cli.PrintGraph(ctx, &out, path, nil, ""))
	assert.True(t, strings.HasPrefix(out.String(), "graph TD"))
	assert.NotContains(t, out.String(), "classDef")

	_, _, err = setup.Engine.Handle(ctx, domain.UserText("g1", "hi"))
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, cli.PrintGraph(ctx, &out, path, setup.Engine.Sessions().Store(), "g1"))
	assert.Contains(t, out.String(), "classDef")

	assert.Error(t, cli.PrintGraph(ctx, &out, path, setup.Engine.Sessions().Store(), "nobody"))
}

func TestExampleFlows(t *testing.T) {
	ctx := context.Background()
	opts := cli.DefaultEngineOptions()
	opts.FlowsPath = filepath.Join("..", "..", "examples", "flows")
	opts.ActionsPath = filepath.Join("..", "..", "examples", "actions.yaml")

	var out bytes.Buffer
	report, err := cli.ValidatePaths(&out, tui.NewStyler(false), []string{opts.FlowsPath})
	require.NoError(t, err)
	assert.True(t, report.Valid(), out.String())
	assert.Equal(t, 3, report.Files)

	setup, err := cli.CreateEngine(ctx, opts, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	defer setup.Close()

	_, err = setup.Engine.Start(ctx, "ex", map[string]string{"name": "Ana", "order": "42"})
	require.NoError(t, err)

	var texts []string
	var last *domain.Session
	for _, in := range []string{"", "orders", "yes"} {
		msgs, s, err := setup.Engine.Handle(ctx, domain.UserText("ex", in))
		require.NoError(t, err)
		for _, m := range msgs {
			texts = append(texts, m.Text)
		}
		last = s
	}

	assert.Equal(t, []string{
		"Hi Ana! Welcome to ACME. How can we help? Sales, Orders or Agent?",
		"Is your order number 42? Yes or No?",
		"Order 42 is **shipped**.",
	}, texts)
	assert.Equal(t, domain.StatusCompleted, last.Status)
}
