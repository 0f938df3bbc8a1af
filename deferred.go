package tmplstream

import (
	"context"
	"sync"
	"time"
)

// Deferred is a value that becomes available later, or fails.
type Deferred interface {
	// Await blocks until the value settles or ctx is done.
	Await(ctx context.Context) (interface{}, error)
}

// DeferredFunc adapts a function to Deferred. The function is called on
// every Await; use Lazy to run it once.
type DeferredFunc func(ctx context.Context) (interface{}, error)

// Await implements Deferred.
func (f DeferredFunc) Await(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// Future is a Deferred settled by an explicit Resolve or Reject. The first
// settle wins; later calls are ignored.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value interface{}
	err   error
}

// check for interface compliance
var _ Deferred = (*Future)(nil)

// NewFuture returns an unsettled Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve settles the future with v.
func (f *Future) Resolve(v interface{}) {
	f.settle(v, nil)
}

// Reject settles the future with err.
func (f *Future) Reject(err error) {
	f.settle(nil, err)
}

func (f *Future) settle(v interface{}, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await implements Deferred.
func (f *Future) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Go runs fn on its own goroutine and returns a future for its result.
func Go(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) *Future {
	f := NewFuture()
	go func() {
		v, err := fn(ctx)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Resolved returns a future already settled with v.
func Resolved(v interface{}) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// Rejected returns a future already settled with err.
func Rejected(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Delay returns a future that resolves to v after d.
func Delay(d time.Duration, v interface{}) *Future {
	f := NewFuture()
	time.AfterFunc(d, func() { f.Resolve(v) })
	return f
}

// Lazy returns a Deferred that runs fn on the first Await and shares the
// result with every later caller. fn sees the first caller's context values
// but not its cancellation, so one caller giving up does not fail the rest.
func Lazy(fn func(ctx context.Context) (interface{}, error)) Deferred {
	var (
		once sync.Once
		f    = NewFuture()
	)
	return DeferredFunc(func(ctx context.Context) (interface{}, error) {
		once.Do(func() {
			go func() {
				v, err := fn(context.WithoutCancel(ctx))
				if err != nil {
					f.Reject(err)
					return
				}
				f.Resolve(v)
			}()
		})
		return f.Await(ctx)
	})
}
