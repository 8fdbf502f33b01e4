package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnRejectsCommandWithoutExecuteException(t *testing.T) {
	s := New().Allow(EnvVar("PATH"))
	_, err := s.Spawn(context.Background(), "/usr/bin/rm", []string{"-rf", "/"}, nil)
	require.Error(t, err)
}

func TestSpawnAllowsExplicitlyGrantedExecutable(t *testing.T) {
	s := New().Allow(ExecuteAndReadPath("/bin/echo"))
	cmd, err := s.Spawn(context.Background(), "/bin/echo", []string{"hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/bin/echo", cmd.Path)
}

func TestEnvFilteringOnlyPassesAllowedVariables(t *testing.T) {
	s := New().Allow(ExecuteAndReadPath("/bin/echo"), EnvVar("PATH"))
	cmd, err := s.Spawn(context.Background(), "/bin/echo", nil, []string{"PATH=/usr/bin", "SECRET=xyz"})
	require.NoError(t, err)
	assert.Contains(t, cmd.Env, "PATH=/usr/bin")
	assert.NotContains(t, cmd.Env, "SECRET=xyz")
}

func TestNetworkingAllowedReflectsPolicy(t *testing.T) {
	assert.False(t, New().NetworkingAllowed())
	assert.True(t, New().Allow(Network()).NetworkingAllowed())
}

func TestCanReadAndCanWriteRespectExceptionKind(t *testing.T) {
	s := New().Allow(ReadPath("/tmp/in"), WritePath("/tmp/out"))
	assert.True(t, s.CanRead("/tmp/in"))
	assert.False(t, s.CanWrite("/tmp/in"))
	assert.True(t, s.CanWrite("/tmp/out"))
	assert.False(t, s.CanRead("/tmp/out"))
}

func TestSandboxPolicyCannotBeEscalatedAfterSpawn(t *testing.T) {
	s := New().Allow(ExecuteAndReadPath("/bin/echo"))
	_, err := s.Spawn(context.Background(), "/bin/echo", nil, nil)
	require.NoError(t, err)

	// A child spawned under this policy has no handle on the Sandbox
	// value itself (Spawn returns only an *exec.Cmd), so there is no API
	// surface through which it could grant itself new exceptions.
	_, err = s.Spawn(context.Background(), "/bin/sh", nil, nil)
	assert.Error(t, err)
}
