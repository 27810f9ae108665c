package edge

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thimbleforth/ditto-fde-takehome/internal/auth"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

func TestClient_SubmitAgainstCloud(t *testing.T) {
	c := startCloud(t)
	client := NewClient(c.server.URL+"/", "edge-a", newIssuer(t), time.Second, nil)

	seq, err := client.Submit(t.Context(), ir.Submission{
		ReportID: "r-1", Title: "t", Content: "c", UpdatedAt: "2025-03-14T09:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	views, err := client.Versions(t.Context(), "r-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "edge-a", views[0].UpdatedBy)

	latest, err := client.Latest(t.Context())
	require.NoError(t, err)
	assert.Len(t, latest, 1)

	health, err := client.Health(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "running", health.Status)
}

func TestClient_RejectionsAreTyped(t *testing.T) {
	c := startCloud(t)
	client := NewClient(c.server.URL, "edge-a", newIssuer(t), time.Second, nil)

	_, err := client.Submit(t.Context(), ir.Submission{ReportID: "r-1", Title: "t", Content: "c", UpdatedAt: "soon"})
	require.Error(t, err)
	var e *ir.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ir.ErrCodeMalformedTimestamp, e.Code)
	assert.Equal(t, "updated_at", e.Field)
}

func TestClient_WrongKeyIsAuthError(t *testing.T) {
	c := startCloud(t)

	otherPriv, _, err := auth.GenerateKeyPair(auth.DefaultKeyBits)
	require.NoError(t, err)
	iss, err := auth.NewIssuer(otherPriv, time.Minute)
	require.NoError(t, err)

	client := NewClient(c.server.URL, "edge-a", iss, time.Second, nil)
	_, err = client.Submit(t.Context(), ir.Submission{ReportID: "r-1", Title: "t", Content: "c", UpdatedAt: "2025-03-14T09:00:00Z"})
	assert.True(t, ir.IsAuthError(err), "got %v", err)

	n, err := c.store.Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, "edge-a", newIssuer(t), 200*time.Millisecond, nil)
	_, err := client.Submit(t.Context(), ir.Submission{ReportID: "r-1", Title: "t", Content: "c"})
	assert.True(t, errors.Is(err, ErrUnreachable), "got %v", err)
}

func TestClient_UntypedErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "edge-a", newIssuer(t), time.Second, nil)
	_, err := client.Submit(t.Context(), ir.Submission{ReportID: "r-1", Title: "t", Content: "c"})
	require.Error(t, err)
	assert.Empty(t, ir.CodeOf(err))
	assert.Contains(t, err.Error(), "502")
}
