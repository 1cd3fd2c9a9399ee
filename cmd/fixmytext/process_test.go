package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Replies that are not JSON exercise the fallback path of every phase, so the
// foundation document comes through unchanged.
const processReply = "Subject: Budget approved\n\nThe budget for Q3 was approved."

func TestProcessCommand(t *testing.T) {
	isolateEnv(t)
	api := newFakeOpenAI(t, processReply)
	cfg := writeConfig(t, api.URL)

	stdout, stderr, err := execute(context.Background(), t, "",
		"process", "--config", cfg, "--type", "memo", "budget ok for q3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Subject: Budget approved")
	assert.Contains(t, stdout, "The budget for Q3 was approved.")
	assert.NotContains(t, stderr, "[oneshot")
	assert.Greater(t, api.requests.Load(), int32(1))
}

func TestProcessCommand_Verbose(t *testing.T) {
	isolateEnv(t)
	api := newFakeOpenAI(t, processReply)
	cfg := writeConfig(t, api.URL)

	_, stderr, err := execute(context.Background(), t, "",
		"process", "--config", cfg, "--type", "memo", "-v", "budget ok for q3")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[detection  ]")
	assert.Contains(t, stderr, "[oneshot    ]")
	assert.Contains(t, stderr, "DOCUMENT")
	assert.Contains(t, stderr, "IMPROVEMENTS")
}

func TestProcessCommand_JSON(t *testing.T) {
	isolateEnv(t)
	api := newFakeOpenAI(t, processReply)
	cfg := writeConfig(t, api.URL)

	stdout, _, err := execute(context.Background(), t, "budget ok for q3",
		"process", "--config", cfg, "--type", "memo", "--source-app", "Outlook", "--json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "memo", result["document_type"])
	assert.Equal(t, "Outlook", result["source_app"])
	assert.Contains(t, result["final_document"], "The budget for Q3 was approved.")
}

func TestProcessCommand_InvalidType(t *testing.T) {
	isolateEnv(t)
	api := newFakeOpenAI(t, processReply)
	cfg := writeConfig(t, api.URL)

	_, _, err := execute(context.Background(), t, "", "process", "--config", cfg, "--type", "haiku", "text")
	require.Error(t, err)
	assert.Zero(t, api.requests.Load())
}
