package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
)

// callbackResult is what the loopback server hands back once the identity
// provider redirects the browser to it.
type callbackResult struct {
	code  string
	state string
	err   error
}

// oneShotServer serves exactly one request on the OAuth redirect_uri path,
// then shuts itself down. Adapted from the browser-based login flow's
// single-route loopback pattern: bind the listener up front so the exact
// port is known before the authorization URL is constructed, serve off a
// goroutine, and use a pair of channels to signal "a request arrived" and
// "the server has finished shutting down" independently.
type oneShotServer struct {
	Port int

	listener net.Listener
	srv      *http.Server

	mu     sync.Mutex
	result *callbackResult

	requestDone chan struct{}
	serverDone  chan struct{}
	serverErr   error
}

func newOneShotServer(expectedState string) (*oneShotServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &oneShotServer{
		Port:        listener.Addr().(*net.TCPAddr).Port,
		listener:    listener,
		requestDone: make(chan struct{}),
		serverDone:  make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.handleCallback(expectedState, w, r)
	})
	s.srv = &http.Server{Handler: mux}
	return s, nil
}

// handleCallback implements the single-route handling from §4.2: state is
// checked first and rejected with a 500 on mismatch (no token exchange can
// follow); otherwise a code yields a 200 success page and an error param
// yields a 200 failure page, both scheduling shutdown.
func (s *oneShotServer) handleCallback(expectedState string, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res := &callbackResult{
		code:  q.Get("code"),
		state: q.Get("state"),
	}

	switch {
	case q.Get("state") == "" || res.state != expectedState:
		res.err = ErrXSRFMismatch
	case res.code != "":
		// success, no error.
	default:
		res.err = &CallbackError{Code: q.Get("error"), Description: q.Get("error_description")}
	}

	s.mu.Lock()
	if s.result == nil {
		s.result = res
	}
	s.mu.Unlock()

	if errors.Is(res.err, ErrXSRFMismatch) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "authorization failed: %v. You may close this window.", res.err)
	} else if res.err != nil {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "authorization failed: %v. You may close this window.", res.err)
	} else {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Authorization complete. You may close this window and return to the terminal.")
	}

	close(s.requestDone)
}

// start begins serving in the background.
func (s *oneShotServer) start() {
	go func() {
		defer close(s.serverDone)
		if err := s.srv.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.serverErr = err
		}
	}()
}

// wait blocks until a callback is received or ctx is cancelled, then shuts
// the server down and returns the outcome.
func (s *oneShotServer) wait(ctx context.Context) (*callbackResult, error) {
	select {
	case <-s.requestDone:
	case <-ctx.Done():
		s.closeServer()
		return nil, ErrTimedOut
	}

	s.closeServer()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result.err != nil {
		return nil, s.result.err
	}
	return s.result, nil
}

func (s *oneShotServer) closeServer() {
	_ = s.srv.Shutdown(context.Background())
	<-s.serverDone
}
