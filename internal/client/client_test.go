package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSubmitsPackagesAndReturnsJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/jobs", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Packages, 1)
		assert.Equal(t, "lodash", req.Packages[0].Name)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(AnalyzeResponse{JobID: "job-123"})
	}))
	defer srv.Close()

	c := NewClient(Opts{APIBaseURL: srv.URL, Token: "test-token"})
	resp, err := c.Analyze(context.Background(), AnalyzeRequest{
		Packages: []Package{{Name: "lodash", Version: "4.17.21", Ecosystem: "npm"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "job-123", resp.JobID)
}

func TestGetJobStatusReturnsUnauthorizedOnRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Opts{APIBaseURL: srv.URL, Token: "stale"})
	_, err := c.GetJobStatus(context.Background(), "job-123")
	require.ErrorIs(t, err, ErrUnauthorized)
}
