package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigShow_YAML(t *testing.T) {
	rootOpts := &RootOptions{
		Format: "text",
		Env: mapEnv(map[string]string{
			"EDGE_USER":   "edge-alpha",
			"LISTEN_ADDR": ":9443",
		}),
	}

	out, _, err := execute(NewConfigCommand(rootOpts), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "user: edge-alpha")
	assert.Contains(t, out, "9443")
	assert.Contains(t, out, "append_timeout: 5s")
	assert.Contains(t, out, "format: text")
}

func TestConfigShow_JSON(t *testing.T) {
	rootOpts := &RootOptions{Format: "json", Env: mapEnv(nil)}

	out, _, err := execute(NewConfigCommand(rootOpts), "show")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Cloud struct {
				Listen string `json:"listen"`
			} `json:"cloud"`
			Log struct {
				Level string `json:"level"`
			} `json:"log"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ":8443", resp.Data.Cloud.Listen)
	assert.Equal(t, "info", resp.Data.Log.Level)
}

func TestConfigShow_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	rootOpts := &RootOptions{Format: "text", ConfigPath: path, Env: mapEnv(nil)}
	out, _, err := execute(NewConfigCommand(rootOpts), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
}

func TestConfigShow_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))

	rootOpts := &RootOptions{Format: "text", ConfigPath: path, Env: mapEnv(nil)}
	_, _, err := execute(NewConfigCommand(rootOpts), "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
