package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travis-metrics/src/travis"
)

func TestExecute_ClosesLogOnFailedRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	t.Setenv("TRAVIS_TOKEN", "test-token")
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)

	err := execute(context.Background(), []string{
		"collect",
		"--base-url", server.URL,
		"--cache-backend", "none",
		"--output", filepath.Join(dir, "data.csv"),
		"--logs-dir", filepath.Join(dir, "logs"),
		"--log-file", logPath,
	})

	var apiErr *travis.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Nil(t, log, "log file must be closed after a failed run")
}

func TestExecute_Version(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)

	require.NoError(t, execute(context.Background(), []string{"version"}))
	assert.Equal(t, "travis-metrics dev\n", out.String())
	assert.Nil(t, log)
}
