package forknode

import (
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

// StartTestNode serves a chain seeded with DefaultState on an httptest
// server and returns the chain and its RPC URL. The server is closed when
// the test ends.
func StartTestNode(t *testing.T, opts Options, serverOpts ServerOptions) (*Chain, string) {
	t.Helper()

	chain := NewChain(opts, zap.NewNop())
	if err := chain.Seed(DefaultState()); err != nil {
		t.Fatalf("failed to seed chain: %v", err)
	}

	srv, err := NewServer(chain, serverOpts, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create fork node server: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})

	return chain, ts.URL
}
