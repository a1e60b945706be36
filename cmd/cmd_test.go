package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckConfig(t *testing.T) {
	path := writeConfig(t, `sync:
  adapter_id: cpo-1
  status_flush_every: 5s
  disable_send_cdrs: true
remote:
  base_url: http://clearing.local
  api_key: hidden
metrics:
  sinks:
    - type: prometheus
`)
	out, err := execute(t, "check-config", "-c", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "hidden")

	var view effective
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "cpo-1", view.Sync.AdapterID)
	assert.Equal(t, "5s", view.Sync.StatusFlushEvery)
	assert.Equal(t, "31s", view.Sync.ServiceCheckEvery)
	assert.Equal(t, []string{"send_cdrs"}, view.Sync.Disabled)
	assert.Equal(t, "api_key", view.Auth)
	assert.Equal(t, []string{"prometheus"}, view.Sinks)
}

func TestCheckConfigInvalid(t *testing.T) {
	path := writeConfig(t, "sync:\n  request_timeout: -1s\n")
	_, err := execute(t, "check-config", "-c", path)
	assert.ErrorContains(t, err, "load config")
}

func TestAuthorizeCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		status := "not_authorized"
		if req.Token == "good" {
			status = "authorized"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status, "provider_id": "DE-XYZ"})
	}))
	defer srv.Close()
	path := writeConfig(t, "remote:\n  base_url: "+srv.URL+"\n")

	out, err := execute(t, "authorize", "good", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "good: authorized (provider DE-XYZ)")

	out, err = execute(t, "authorize", "bad", "-c", path)
	assert.Error(t, err)
	assert.Contains(t, out, "bad: not_authorized")
}

func TestLogLevelFlag(t *testing.T) {
	t.Cleanup(func() { logLevel = "" })
	path := writeConfig(t, "remote:\n  base_url: http://clearing.local\n")

	out, err := execute(t, "check-config", "-c", path, "--log-level", "debug")
	require.NoError(t, err)
	var view effective
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "debug", view.LogLevel)

	_, err = execute(t, "check-config", "-c", path, "--log-level", "loud")
	assert.ErrorContains(t, err, "logging.level")
}
