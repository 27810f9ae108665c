package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thimbleforth/ditto-fde-takehome/internal/config"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
	"github.com/thimbleforth/ditto-fde-takehome/internal/testutil"
)

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, config.LogConfig{Level: "warn", Format: "text"}, false)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "report_id", "r1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "report_id=r1")
}

func TestNewLogger_JSONVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, config.LogConfig{Level: "error", Format: "json"}, true)
	require.NoError(t, err)

	logger.Debug("details")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "DEBUG", line["level"])
	assert.Equal(t, "details", line["msg"])
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, config.LogConfig{Level: "loud", Format: "text"}, false)
	assert.Error(t, err)

	_, err = NewLogger(&bytes.Buffer{}, config.LogConfig{Level: "info", Format: "xml"}, false)
	assert.Error(t, err)
}

func TestNewCloud(t *testing.T) {
	_, pubPath := testutil.WriteRSAKeyPair(t)
	cfg := config.Default().Cloud
	cfg.PublicKeyPath = pubPath
	cfg.DBPath = filepath.Join(t.TempDir(), "data", "cloud.sqlite")

	cloud, err := NewCloud(cfg, nil)
	require.NoError(t, err)

	rec, err := cloud.Reconciler.Accept(context.Background(), ir.Submission{
		ReportID:  "r1",
		Title:     "T",
		Content:   "C",
		UpdatedAt: "2025-03-14T10:00:00Z",
	}, "edge-alpha")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Seq)
	require.NoError(t, cloud.Close())

	st, err := OpenReadOnlyStore(cfg.DBPath)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = st.Append(context.Background(), rec)
	assert.Error(t, err, "offline inspection must not write")
}

func TestNewCloud_MissingKey(t *testing.T) {
	cfg := config.Default().Cloud
	cfg.PublicKeyPath = filepath.Join(t.TempDir(), "missing.pem")
	cfg.DBPath = filepath.Join(t.TempDir(), "cloud.sqlite")

	_, err := NewCloud(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load public key")
}

func TestOpenReadOnlyStore_Missing(t *testing.T) {
	_, err := OpenReadOnlyStore(filepath.Join(t.TempDir(), "nope.sqlite"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version store not found")
}

func TestNewEdge(t *testing.T) {
	privPath, _ := testutil.WriteRSAKeyPair(t)
	cfg := config.Default().Edge
	cfg.User = "edge-alpha"
	cfg.PrivateKeyPath = privPath
	cfg.DBPath = filepath.Join(t.TempDir(), "edge", "edge.sqlite")

	e, err := NewEdge(cfg, nil)
	require.NoError(t, err)
	defer e.Close()

	local, err := e.Log.AppendLocal(context.Background(), ir.Submission{
		ReportID: "r1",
		Title:    "T",
		Content:  "C",
	})
	require.NoError(t, err)
	assert.False(t, local.Synced())

	token, err := e.Issuer.Issue(cfg.User)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestNewEdge_RequiresUser(t *testing.T) {
	_, err := NewEdge(config.Default().Edge, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edge user is required")
}
