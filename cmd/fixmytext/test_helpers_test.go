package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI answers every chat completion with reply and counts requests.
type fakeOpenAI struct {
	*httptest.Server
	reply    string
	requests atomic.Int32
}

func newFakeOpenAI(t *testing.T, reply string) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{reply: reply}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": f.reply}},
			},
		})
	}))
	t.Cleanup(f.Close)
	return f
}

// writeConfig writes a config file pointing the OpenAI provider at baseURL.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	content := fmt.Sprintf(`provider:
  name: openai
  api_key: test-key
  base_url: %s
  cache_ttl_seconds: 0
hotkey:
  settle_delay_ms: 0
logging:
  level: error
`, baseURL)
	path := filepath.Join(t.TempDir(), "fixmytext.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// isolateEnv clears variables that would override the test configuration.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"FIXMYTEXT_PROVIDER", "FIXMYTEXT_SERVER_SECRET", "FIXMYTEXT_LOG_LEVEL", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}
}

// execute runs the root command in-process and returns stdout and stderr.
// Flag values are reset afterwards since the commands share globals.
func execute(ctx context.Context, t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func resetFlags() {
	var reset func(*cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.PersistentFlags(), c.Flags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)
}
