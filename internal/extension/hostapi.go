package extension

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/phylum-dev/cli/internal/client"
	"github.com/phylum-dev/cli/internal/lockfile"
	"github.com/phylum-dev/cli/internal/sandbox"
)

// Tokens is the pair of credentials the host API surfaces to an
// extension, subject to the env permission gate (§4.4).
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// accessTokenEnvVar and refreshTokenEnvVar are the synthetic environment
// variable names a manifest's `env` permission must list in order to call
// getAccessToken/getRefreshToken - the tokens themselves never touch an
// actual environment variable, this just reuses the env axis as the gate
// the spec describes (§4.4).
const (
	accessTokenEnvVar  = "PHYLUM_API_KEY"
	refreshTokenEnvVar = "PHYLUM_REFRESH_TOKEN"
)

// APIClient is the subset of the risk-analysis client the host API needs;
// a narrow interface so the extension runtime doesn't import the client
// package's full surface. *client.Client satisfies it directly.
type APIClient interface {
	BaseURL() string
	Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error)
	Analyze(ctx context.Context, req client.AnalyzeRequest) (*client.AnalyzeResponse, error)
	GetJobStatus(ctx context.Context, jobID string) (*client.JobStatus, error)
}

const hostAPITimeout = 30 * time.Second

// hostAPI binds the Go-side implementation of the `phylum` module (§4.4).
// getAccessToken/getRefreshToken (env), analyze (read) and runSandboxed
// (run, plus each requested exception) check the extension's own
// Permissions before doing anything observable; a denied call raises
// inside the engine rather than silently no-op'ing. apiBaseUrl, fetch and
// getJobStatus perform no permission check.
type hostAPI struct {
	rt     *goja.Runtime
	perms  Permissions
	client APIClient
	tokens Tokens
	args   []string
}

func newHostAPIObject(rt *goja.Runtime, perms Permissions, apiClient APIClient, tokens Tokens, args []string) *goja.Object {
	h := &hostAPI{rt: rt, perms: perms, client: apiClient, tokens: tokens, args: args}

	obj := rt.NewObject()
	_ = obj.Set("apiBaseUrl", h.apiBaseUrl)
	_ = obj.Set("fetch", h.fetch)
	_ = obj.Set("getAccessToken", h.getAccessToken)
	_ = obj.Set("getRefreshToken", h.getRefreshToken)
	_ = obj.Set("analyze", h.analyze)
	_ = obj.Set("getJobStatus", h.getJobStatus)
	_ = obj.Set("runSandboxed", h.runSandboxed)
	_ = obj.Set("args", rt.ToValue(args))
	return obj
}

func (h *hostAPI) throw(err error) {
	panic(h.rt.NewGoError(err))
}

func (h *hostAPI) apiBaseUrl() string {
	return h.client.BaseURL()
}

// fetch performs an authenticated request against the risk-analysis
// service; the token is attached here and never exposed to script code
// (§4.4).
func (h *hostAPI) fetch(endpoint string, init map[string]interface{}) map[string]interface{} {
	method := http.MethodGet
	var body io.Reader
	if init != nil {
		if m, ok := init["method"].(string); ok && m != "" {
			method = m
		}
		if b, ok := init["body"].(string); ok {
			body = bytes.NewBufferString(b)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), hostAPITimeout)
	defer cancel()

	resp, err := h.client.Do(ctx, method, endpoint, body)
	if err != nil {
		h.throw(errors.Wrap(err, "extension fetch"))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.throw(errors.Wrap(err, "extension fetch: reading response"))
	}

	return map[string]interface{}{
		"status": resp.StatusCode,
		"body":   string(data),
	}
}

func (h *hostAPI) getAccessToken() string {
	if !h.perms.AllowsEnv(accessTokenEnvVar) {
		h.throw(&PermissionDeniedError{Axis: "env", Value: accessTokenEnvVar})
	}
	return h.tokens.AccessToken
}

func (h *hostAPI) getRefreshToken() string {
	if !h.perms.AllowsEnv(refreshTokenEnvVar) {
		h.throw(&PermissionDeniedError{Axis: "env", Value: refreshTokenEnvVar})
	}
	return h.tokens.RefreshToken
}

// analyze reads depfilePath, resolves it through the same dispatch
// algorithm the top-level `analyze` command uses, and submits the
// resulting packages for evaluation (§4.4).
func (h *hostAPI) analyze(depfilePath string, project, group string) string {
	if !h.perms.AllowsRead(depfilePath) {
		h.throw(&PermissionDeniedError{Axis: "read", Value: depfilePath})
	}

	content, err := os.ReadFile(depfilePath)
	if err != nil {
		h.throw(errors.Wrapf(err, "extension analyze: reading %s", depfilePath))
	}

	pkgs, _, err := lockfile.Resolve(nil, depfilePath, content)
	if err != nil {
		h.throw(errors.Wrap(err, "extension analyze"))
	}
	pkgs = lockfile.FilterForSubmission(pkgs)

	req := client.AnalyzeRequest{Project: project, Group: group}
	for _, p := range pkgs {
		req.Packages = append(req.Packages, client.Package{
			Name:      p.Name,
			Version:   lockfile.SubmissionVersion(p),
			Ecosystem: string(p.Ecosystem),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), hostAPITimeout)
	defer cancel()

	resp, err := h.client.Analyze(ctx, req)
	if err != nil {
		h.throw(errors.Wrap(err, "extension analyze"))
	}
	return resp.JobID
}

func (h *hostAPI) getJobStatus(jobID string) *client.JobStatus {
	ctx, cancel := context.WithTimeout(context.Background(), hostAPITimeout)
	defer cancel()

	status, err := h.client.GetJobStatus(ctx, jobID)
	if err != nil {
		h.throw(errors.Wrap(err, "extension getJobStatus"))
	}
	return status
}

// sandboxedResult is the {code, stdout, stderr} shape runSandboxed resolves
// with (§4.4).
type sandboxedResult struct {
	Code   int    `json:"code"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// runSandboxed spawns cmd under a fresh sandbox whose policy is the
// caller's own permissions narrowed by exceptions - it can never grant
// more than the extension itself already holds (§4.4, §8's permission-
// narrowing property).
func (h *hostAPI) runSandboxed(spec map[string]interface{}) sandboxedResult {
	cmdName, _ := spec["cmd"].(string)
	if cmdName == "" {
		h.throw(errors.New("runSandboxed: cmd is required"))
	}

	var argv []string
	if rawArgs, ok := spec["args"].([]interface{}); ok {
		for _, a := range rawArgs {
			if s, ok := a.(string); ok {
				argv = append(argv, s)
			}
		}
	}

	var exceptionSpecs []interface{}
	if raw, ok := spec["exceptions"].([]interface{}); ok {
		exceptionSpecs = raw
	}

	box := sandbox.New()
	for _, raw := range exceptionSpecs {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		exc, err := h.narrowedException(m)
		if err != nil {
			h.throw(err)
		}
		box.Allow(exc)
	}

	if !h.perms.AllowsRun(cmdName) {
		h.throw(&PermissionDeniedError{Axis: "run", Value: cmdName})
	}
	box.Allow(sandbox.ExecutePath(cmdName))

	ctx, cancel := context.WithTimeout(context.Background(), hostAPITimeout)
	defer cancel()

	path, err := exec.LookPath(cmdName)
	if err != nil {
		path = cmdName
	}
	cmd, err := box.Spawn(ctx, path, argv, nil)
	if err != nil {
		h.throw(err)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		h.throw(errors.Wrap(err, "runSandboxed: starting child"))
	}

	// Waiting via errgroup rather than a bare cmd.Wait() keeps this in
	// step with the extension event loop's other concurrent waits (§5's
	// "wait on a sandboxed child process" suspension point), and gives
	// the nested-sandbox spawn the same cancellation-propagating shape as
	// the rest of the runtime.
	var wg errgroup.Group
	wg.Go(cmd.Wait)

	code := 0
	if err := wg.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			h.throw(errors.Wrap(err, "runSandboxed"))
		}
	}

	return sandboxedResult{Code: code, Stdout: stdout.String(), Stderr: stderr.String()}
}

// narrowedException converts a JS exception spec into a sandbox.Exception,
// rejecting it unless it is already covered by the extension's own
// Permissions - the mechanism behind "never widens" (§4.4, §8).
func (h *hostAPI) narrowedException(m map[string]interface{}) (sandbox.Exception, error) {
	kind, _ := m["type"].(string)
	path, _ := m["path"].(string)
	name, _ := m["name"].(string)

	switch kind {
	case "read":
		if !h.perms.AllowsRead(path) {
			return sandbox.Exception{}, &PermissionDeniedError{Axis: "read", Value: path}
		}
		return sandbox.ReadPath(path), nil
	case "write":
		if !h.perms.AllowsWrite(path) {
			return sandbox.Exception{}, &PermissionDeniedError{Axis: "write", Value: path}
		}
		return sandbox.WritePath(path), nil
	case "readWrite":
		if !h.perms.AllowsRead(path) || !h.perms.AllowsWrite(path) {
			return sandbox.Exception{}, &PermissionDeniedError{Axis: "readWrite", Value: path}
		}
		return sandbox.ReadWritePath(path), nil
	case "execute":
		if !h.perms.AllowsRun(path) {
			return sandbox.Exception{}, &PermissionDeniedError{Axis: "run", Value: path}
		}
		return sandbox.ExecutePath(path), nil
	case "executeAndRead":
		if !h.perms.AllowsRun(path) || !h.perms.AllowsRead(path) {
			return sandbox.Exception{}, &PermissionDeniedError{Axis: "run", Value: path}
		}
		return sandbox.ExecuteAndReadPath(path), nil
	case "env":
		if !h.perms.AllowsEnv(name) {
			return sandbox.Exception{}, &PermissionDeniedError{Axis: "env", Value: name}
		}
		return sandbox.EnvVar(name), nil
	case "net":
		if !h.perms.Net.allowAll && len(h.perms.Net.literals) == 0 {
			return sandbox.Exception{}, &PermissionDeniedError{Axis: "net", Value: ""}
		}
		return sandbox.Network(), nil
	default:
		return sandbox.Exception{}, fmt.Errorf("runSandboxed: unknown exception type %q", kind)
	}
}
