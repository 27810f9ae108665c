package edge

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thimbleforth/ditto-fde-takehome/internal/api"
	"github.com/thimbleforth/ditto-fde-takehome/internal/auth"
	"github.com/thimbleforth/ditto-fde-takehome/internal/engine"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
	"github.com/thimbleforth/ditto-fde-takehome/internal/store"
	"github.com/thimbleforth/ditto-fde-takehome/internal/testutil"
)

func openTestLog(t *testing.T, user string) *Log {
	t.Helper()
	l, err := OpenLog(filepath.Join(t.TempDir(), "edge.db"), user)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	l.SetClock(testutil.NewDeterministicClock(time.Time{}, time.Second).Now)
	return l
}

// cloud is an in-process cloud: real store, reconciler, and HTTP server.
type cloud struct {
	server *httptest.Server
	rec    *engine.Reconciler
	store  *store.Store
}

func startCloud(t *testing.T) *cloud {
	t.Helper()
	_, pub := testutil.RSAKeyPair(t)

	s, err := store.Open(filepath.Join(t.TempDir(), "cloud.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	verifier, err := auth.NewVerifier(pub)
	require.NoError(t, err)

	rec := engine.New(s, nil)
	srv := httptest.NewServer(api.NewServer(rec, verifier, nil, api.WithPinger(s)).Handler())
	t.Cleanup(srv.Close)
	return &cloud{server: srv, rec: rec, store: s}
}

func newIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	priv, _ := testutil.RSAKeyPair(t)
	iss, err := auth.NewIssuer(priv, 30*time.Minute)
	require.NoError(t, err)
	return iss
}

// scriptedSubmitter returns queued results in order and records calls.
type scriptedSubmitter struct {
	mu      sync.Mutex
	results []error
	next    int64
	calls   []ir.Submission
}

func (s *scriptedSubmitter) Submit(_ context.Context, sub ir.Submission) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sub)
	var err error
	if len(s.results) > 0 {
		err, s.results = s.results[0], s.results[1:]
	}
	if err != nil {
		return 0, err
	}
	s.next++
	return s.next, nil
}

func contextWithCancel(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)
	return ctx, cancel
}
