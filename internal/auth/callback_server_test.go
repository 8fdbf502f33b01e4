package auth

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneShotServerAcceptsMatchingState(t *testing.T) {
	srv, err := newOneShotServer("expected-state")
	require.NoError(t, err)
	srv.start()

	go func() {
		time.Sleep(10 * time.Millisecond)
		url := fmt.Sprintf("http://127.0.0.1:%d/?code=abc&state=expected-state", srv.Port)
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := srv.wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.code)
}

func TestOneShotServerRejectsMismatchedState(t *testing.T) {
	srv, err := newOneShotServer("expected-state")
	require.NoError(t, err)
	srv.start()

	statusCh := make(chan int, 1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		url := fmt.Sprintf("http://127.0.0.1:%d/?code=abc&state=wrong-state", srv.Port)
		resp, err := http.Get(url)
		if err == nil {
			statusCh <- resp.StatusCode
			resp.Body.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = srv.wait(ctx)
	assert.ErrorIs(t, err, ErrXSRFMismatch)
	assert.Equal(t, http.StatusInternalServerError, <-statusCh)
}

func TestOneShotServerReportsCallbackErrorWithoutCode(t *testing.T) {
	srv, err := newOneShotServer("expected-state")
	require.NoError(t, err)
	srv.start()

	statusCh := make(chan int, 1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		url := fmt.Sprintf(
			"http://127.0.0.1:%d/?state=expected-state&error=access_denied&error_description=user+cancelled",
			srv.Port,
		)
		resp, err := http.Get(url)
		if err == nil {
			statusCh <- resp.StatusCode
			resp.Body.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = srv.wait(ctx)
	var cbErr *CallbackError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, "access_denied", cbErr.Code)
	assert.Equal(t, "user cancelled", cbErr.Description)
	assert.Equal(t, http.StatusOK, <-statusCh)
}
