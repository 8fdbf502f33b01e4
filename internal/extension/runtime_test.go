package extension

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/phylum-dev/cli/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPIClient struct {
	baseURL    string
	jobID      string
	jobStatus  *client.JobStatus
	analyzeErr error
}

func (f *fakeAPIClient) BaseURL() string { return f.baseURL }

func (f *fakeAPIClient) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func (f *fakeAPIClient) Analyze(ctx context.Context, req client.AnalyzeRequest) (*client.AnalyzeResponse, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &client.AnalyzeResponse{JobID: f.jobID}, nil
}

func (f *fakeAPIClient) GetJobStatus(ctx context.Context, jobID string) (*client.JobStatus, error) {
	return f.jobStatus, nil
}

func writeMainScript(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRuntimeRunsPlainScriptWithNoHostCalls(t *testing.T) {
	dir := t.TempDir()
	writeMainScript(t, dir, "main.js", "var x = 1 + 1;")

	manifest := &Manifest{Name: "quiet"}
	rt := NewRuntime(dir, manifest, &fakeAPIClient{baseURL: "https://example.com"}, Tokens{}, nil)

	err := rt.Run(context.Background())
	assert.NoError(t, err)
}

func TestRuntimeExposesArgsToScript(t *testing.T) {
	manifest := &Manifest{Name: "argtest"}
	rt := NewRuntime(t.TempDir(), manifest, &fakeAPIClient{}, Tokens{}, []string{"--test", "-x", "a"})

	v, err := rt.vm.RunString(`require("phylum").args.length`)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v.ToInteger())
}

func TestRuntimeDeniesGetAccessTokenWithoutEnvPermission(t *testing.T) {
	manifest := &Manifest{Name: "noenv"}
	rt := NewRuntime(t.TempDir(), manifest, &fakeAPIClient{}, Tokens{AccessToken: "secret"}, nil)

	_, err := rt.vm.RunString(`require("phylum").getAccessToken()`)
	assert.Error(t, err)
}

func TestRuntimeGrantsGetAccessTokenWithEnvPermission(t *testing.T) {
	manifest := &Manifest{
		Name:        "withenv",
		Permissions: Permissions{Env: PermissionAxis{literals: []string{accessTokenEnvVar}}},
	}
	rt := NewRuntime(t.TempDir(), manifest, &fakeAPIClient{}, Tokens{AccessToken: "secret-token"}, nil)

	v, err := rt.vm.RunString(`require("phylum").getAccessToken()`)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", v.String())
}

func TestRuntimeRejectsUnknownModuleSpecifier(t *testing.T) {
	manifest := &Manifest{Name: "badimport"}
	rt := NewRuntime(t.TempDir(), manifest, &fakeAPIClient{}, Tokens{}, nil)

	_, err := rt.vm.RunString(`require("fs")`)
	assert.Error(t, err)
}

func TestRuntimeRunMissingEntrypointErrors(t *testing.T) {
	manifest := &Manifest{Name: "empty"}
	rt := NewRuntime(t.TempDir(), manifest, &fakeAPIClient{}, Tokens{}, nil)

	err := rt.Run(context.Background())
	assert.Error(t, err)
}
