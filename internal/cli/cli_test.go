// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jeranaias/agrichat/internal/devserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// =============================================================================
// HELPERS
// =============================================================================

type harness struct {
	home    string
	baseURL string
}

func newHarness(t *testing.T, responder devserver.Responder) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("AGRICHAT_HOME", home)
	for _, k := range []string{"AGRICHAT_BASE_URL", "AGRICHAT_TICK_MS", "AGRICHAT_FLUSH_MS", "AGRICHAT_LOG_LEVEL", "AGRICHAT_DB"} {
		t.Setenv(k, "")
	}

	srv := devserver.New(devserver.Options{ChunkDelay: -1, Responder: responder})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &harness{home: home, baseURL: ts.URL + "/api"}
}

// run executes the app with args and returns stdout, stderr and the error.
func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return h.runContext(context.Background(), t, args...)
}

func (h *harness) runContext(ctx context.Context, t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := append([]string{"agrichat", "--base-url", h.baseURL}, args...)
	err := app.RunContext(ctx, argv)
	return stdout.String(), stderr.String(), err
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

func TestApp_VersionAndVerboseFlags(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	out, _, err := h.run(t, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, Version)

	out, _, err = h.run(t, "--verbose", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.home, "config.toml")+"\n", out)
}

func TestApp_FirstRunOpensSession(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	out, _, err := h.run(t, "new")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
	assert.FileExists(t, filepath.Join(h.home, "agrichat.db"))
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsAnswer(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	out, _, err := h.run(t, "ask", "when", "should", "I", "plant", "maize?")
	require.NoError(t, err)
	assert.Contains(t, out, "Plant maize when the soil is at least")
	assert.NotContains(t, out, "<think>")
	assert.NotContains(t, out, "The farmer asks")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestAsk_RenderFlagOnPipePrintsMarkdownSource(t *testing.T) {
	h := newHarness(t, devserver.Fixed(devserver.Reply{Answer: "Use **lime** on acid soil."}))

	out, _, err := h.run(t, "ask", "--render", "soil")
	require.NoError(t, err)
	assert.Equal(t, "Use **lime** on acid soil.\n", out)
}

func TestAsk_ServerErrorExitsNonZero(t *testing.T) {
	h := newHarness(t, devserver.Fixed(devserver.Reply{
		Answer:    "0123456789",
		FailWith:  "model overloaded",
		FailAfter: 10,
	}))

	out, _, err := h.run(t, "ask", "anything")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, err.Error(), "Error: model overloaded")
	assert.Contains(t, out, "0123456789")
}

func TestAsk_UnreachableBackend(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})
	h.baseURL = "http://127.0.0.1:1/api"

	_, _, err := h.run(t, "ask", "maize")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, err.Error(), "Could not fetch response")
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestHistory_ListsAskedConversation(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	_, _, err := h.run(t, "ask", "tomato staking")
	require.NoError(t, err)

	out, _, err := h.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "*")
	assert.Contains(t, out, "tomato staking")
	assert.Contains(t, out, "2 msgs")
}

func TestNew_PrintsFreshID(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	out, _, err := h.run(t, "new")
	require.NoError(t, err)
	_, parseErr := uuid.Parse(strings.TrimSpace(out))
	assert.NoError(t, parseErr)
}

func TestShow_PrintsTranscript(t *testing.T) {
	h := newHarness(t, devserver.Fixed(devserver.Reply{Answer: "Water in the morning."}))

	_, _, err := h.run(t, "ask", "irrigation")
	require.NoError(t, err)

	out, _, err := h.run(t, "history")
	require.NoError(t, err)
	id := strings.Fields(strings.TrimPrefix(strings.TrimSpace(out), "*"))[0]

	out, _, err = h.run(t, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "You: irrigation")
	assert.Contains(t, out, "Assistant: Water in the morning.")
}

func TestShow_UnknownConversation(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	_, _, err := h.run(t, "show", uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}

func TestShow_RequiresID(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	_, _, err := h.run(t, "show")
	assert.Equal(t, 2, exitCode(err))
}

func TestDelete_RemovesConversation(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	_, _, err := h.run(t, "ask", "pest scouting")
	require.NoError(t, err)
	out, _, err := h.run(t, "history")
	require.NoError(t, err)
	id := strings.Fields(strings.TrimPrefix(strings.TrimSpace(out), "*"))[0]

	out, _, err = h.run(t, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+id)

	out, _, err = h.run(t, "history")
	require.NoError(t, err)
	assert.NotContains(t, out, id)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_ShowReflectsFlags(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	out, _, err := h.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "base_url = \""+h.baseURL+"\"")
}

func TestConfig_InitRefusesOverwrite(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	out, _, err := h.run(t, "config", "init")
	require.NoError(t, err)
	path := filepath.Join(h.home, "config.toml")
	assert.Contains(t, out, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, _, err = h.run(t, "config", "init")
	assert.Equal(t, 1, exitCode(err))

	_, _, err = h.run(t, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestConfig_InvalidBaseURL(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})
	h.baseURL = "ftp://example.com"

	_, _, err := h.run(t, "config", "show")
	assert.Equal(t, 2, exitCode(err))
}

// =============================================================================
// OTHER COMMANDS
// =============================================================================

func TestTUI_NeedsTerminal(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	_, _, err := h.run(t, "tui")
	assert.Equal(t, 2, exitCode(err))
}

func TestServe_StopsWithContext(t *testing.T) {
	h := newHarness(t, devserver.Agronomist{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out, _, err := h.runContext(ctx, t, "serve", "--addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "agrichat dev backend")
}
