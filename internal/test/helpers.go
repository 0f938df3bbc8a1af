// Package test holds helpers for tests that need a live Consul agent.
package test

import (
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/consul/sdk/testutil"
	"github.com/hashicorp/go-hclog"
)

var _ testutil.TestingTB = (*TB)(nil)

// TB stands in for *testing.T where no test is running yet, as in TestMain.
// Log lines go to Logger and Fatalf marks the TB failed instead of exiting.
type TB struct {
	Logger hclog.Logger

	mu       sync.Mutex
	failed   bool
	cleanups []func()
}

// DoCleanup runs the registered cleanups, last registered first.
func (t *TB) DoCleanup() {
	t.mu.Lock()
	fns := t.cleanups
	t.cleanups = nil
	t.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

func (t *TB) Cleanup(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanups = append(t.cleanups, f)
}

func (t *TB) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

func (t *TB) Logf(format string, args ...interface{}) {
	t.logger().Debug(fmt.Sprintf(format, args...))
}

func (t *TB) Fatalf(format string, args ...interface{}) {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
	t.logger().Error(fmt.Sprintf(format, args...))
}

func (*TB) Name() string { return "tmplstream" }
func (*TB) Helper()      {}

func (t *TB) logger() hclog.Logger {
	if t.Logger == nil {
		return hclog.NewNullLogger()
	}
	return t.Logger
}

// ConsulServer starts a Consul dev agent and returns its HTTP address and a
// function stopping it.
func ConsulServer(logger hclog.Logger) (string, func(), error) {
	tb := &TB{Logger: logger}
	srv, err := testutil.NewTestServerConfigT(tb, func(c *testutil.TestServerConfig) {
		c.LogLevel = "error"
		c.Stdout = io.Discard
		c.Stderr = io.Discard
	})
	if err != nil {
		tb.DoCleanup()
		return "", nil, err
	}
	if tb.Failed() {
		srv.Stop()
		tb.DoCleanup()
		return "", nil, fmt.Errorf("consul server failed to start")
	}
	return srv.HTTPAddr, func() {
		srv.Stop()
		tb.DoCleanup()
	}, nil
}
