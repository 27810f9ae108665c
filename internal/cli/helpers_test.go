package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/thimbleforth/ditto-fde-takehome/internal/engine"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
	"github.com/thimbleforth/ditto-fde-takehome/internal/store"
)

// mapEnv returns a config.LookupEnv backed by vars, ignoring the process
// environment.
func mapEnv(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// seedStore creates a Version Store holding the given submissions, all
// accepted as identity.
func seedStore(t *testing.T, identity string, subs ...ir.Submission) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cloud.sqlite")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	rec := engine.New(st, nil)
	for _, sub := range subs {
		_, err := rec.Accept(context.Background(), sub, identity)
		require.NoError(t, err)
	}
	return dbPath
}

func sub(reportID, title, updatedAt string) ir.Submission {
	return ir.Submission{
		ReportID:  reportID,
		Title:     title,
		Content:   "body of " + title,
		UpdatedAt: updatedAt,
	}
}
