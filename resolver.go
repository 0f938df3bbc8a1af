package tmplstream

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/tmplstream/engine"
	"github.com/hashicorp/tmplstream/events"
	"github.com/hashicorp/tmplstream/plugin"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	targetData     = "data"
	targetPartials = "partials"
	targetHelpers  = "helpers"
)

// resolver turns the data, partials and helpers inputs into registrations on
// an engine. Everything it cannot do synchronously becomes a task of the
// pending set.
type resolver struct {
	id     string
	engine engine.Engine
	logger hclog.Logger
	event  events.EventHandler
}

// pending is the barrier every item waits on before rendering. It settles
// once all resolution tasks finish, with the first task error if any.
type pending struct {
	g     *errgroup.Group
	tasks int32
	done  chan struct{}
	err   error
	data  interface{}
}

// start schedules every resolution task and returns the pending set. It
// never blocks on a source.
func (r *resolver) start(ctx context.Context, data Source, partials, helpers *Collection) *pending {
	g, gctx := errgroup.WithContext(ctx)
	p := &pending{g: g, done: make(chan struct{})}
	begin := time.Now()

	r.resolveData(gctx, p, data)
	r.collect(gctx, p.g, &p.tasks, targetPartials, partials)
	r.collect(gctx, p.g, &p.tasks, targetHelpers, helpers)

	tasks := int(atomic.LoadInt32(&p.tasks))
	r.logger.Debug("pending set started", "tasks", tasks)
	r.event(events.ResolveStart{ID: r.id, Tasks: tasks})

	go func() {
		p.err = g.Wait()
		close(p.done)
		if p.err != nil {
			r.logger.Error("resolution failed", "error", p.err)
			r.event(events.ResolveFailed{ID: r.id, Error: p.err})
			return
		}
		r.logger.Debug("pending set settled", "duration", time.Since(begin))
		r.event(events.ResolveDone{ID: r.id, Duration: time.Since(begin)})
	}()
	return p
}

// wait blocks until the barrier settles or ctx is done.
func (p *pending) wait(ctx context.Context) (interface{}, error) {
	select {
	case <-p.done:
		return p.data, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settled reports whether the barrier has settled.
func (p *pending) settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// spawn runs fn as a task of g.
func spawn(g *errgroup.Group, n *int32, fn func() error) {
	atomic.AddInt32(n, 1)
	g.Go(fn)
}

// fail schedules an already failed task so err settles the barrier.
func fail(g *errgroup.Group, n *int32, err error) {
	spawn(g, n, func() error { return err })
}

func (r *resolver) resolveData(ctx context.Context, p *pending, data Source) {
	switch data.Kind() {
	case SourceImmediate:
		v := data.Value()
		switch it := v.(type) {
		case *Item:
			if it.IsNull() {
				return
			}
		case Deferred:
		default:
			p.data = v
			return
		}
		// decoding and awaiting stay off the caller
		spawn(p.g, &p.tasks, func() error {
			d, err := normalizeData(ctx, v)
			if err != nil {
				return &ResolutionError{Target: targetData, Err: err}
			}
			p.data = d
			return nil
		})

	case SourceDeferred:
		d := data.Deferred()
		spawn(p.g, &p.tasks, func() error {
			v, err := d.Await(ctx)
			if err == nil {
				v, err = normalizeData(ctx, v)
			}
			if err != nil {
				return &ResolutionError{Target: targetData, Err: err}
			}
			p.data = v
			return nil
		})

	case SourceCallable:
		fn := data.Value()
		spawn(p.g, &p.tasks, func() error {
			v, err := callZero(fn)
			if err == nil {
				v, err = normalizeData(ctx, v)
			}
			if err != nil {
				return &ResolutionError{Target: targetData, Err: err}
			}
			p.data = v
			return nil
		})
	}
}

// collect schedules the registrations of one collection onto g.
func (r *resolver) collect(ctx context.Context, g *errgroup.Group, n *int32, target string, c *Collection) {
	if c == nil {
		return
	}

	switch c.Kind() {
	case CollectionMapping:
		for _, name := range c.Names() {
			r.collectEntry(ctx, g, n, target, name, c.entries[name])
		}

	case CollectionSequence:
		seq := c.seq
		spawn(g, n, func() error {
			for {
				it, err := seq.Next(ctx)
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return &ResolutionError{Target: target, Err: err}
				}
				if err := r.registerItem(target, it); err != nil {
					return err
				}
			}
		})

	case CollectionSingle:
		it := c.item
		if it.IsNull() {
			r.logger.Trace("skipping null item", "target", target)
			return
		}
		spawn(g, n, func() error { return r.registerItem(target, it) })

	case CollectionUnnamed:
		fail(g, n, &ConfigurationError{
			Target: target,
			Err:    errors.Wrapf(ErrUnnamedSource, "list of %d entries", c.Len()),
		})

	case CollectionLater:
		later := c.later
		spawn(g, n, func() error {
			v, err := later.Await(ctx)
			if err != nil {
				return &ResolutionError{Target: target, Err: err}
			}
			sub, sctx := errgroup.WithContext(ctx)
			var subTasks int32
			r.collect(sctx, sub, &subTasks, target, CollectionOf(v))
			return sub.Wait()
		})
	}
}

func (r *resolver) collectEntry(ctx context.Context, g *errgroup.Group, n *int32, target, name string, src Source) {
	switch src.Kind() {
	case SourceDeferred:
		d := src.Deferred()
		spawn(g, n, func() error {
			v, err := d.Await(ctx)
			if err != nil {
				return &ResolutionError{Target: target, Name: name, Err: err}
			}
			return r.register(target, name, v)
		})

	case SourceCallable:
		fn := src.Value()
		if target == targetPartials {
			// produces the partial text
			spawn(g, n, func() error { return r.register(target, name, fn) })
			return
		}
		if err := r.register(target, name, fn); err != nil {
			fail(g, n, err)
		}

	case SourceImmediate:
		if err := r.register(target, name, src.Value()); err != nil {
			fail(g, n, err)
		}
	}
}

// register adds a settled value under name.
func (r *resolver) register(target, name string, v interface{}) error {
	if it, ok := v.(*Item); ok && it.IsNull() {
		r.logger.Trace("skipping null item", "target", target, "name", name)
		return nil
	}
	if v == nil {
		r.logger.Trace("skipping nil value", "target", target, "name", name)
		return nil
	}

	switch target {
	case targetPartials:
		text, err := partialText(v)
		if err != nil {
			return &ResolutionError{Target: target, Name: name, Err: err}
		}
		if err := r.engine.RegisterPartial(name, text); err != nil {
			return &ResolutionError{Target: target, Name: name, Err: err}
		}
	case targetHelpers:
		if !engine.IsCallable(v) {
			r.logger.Warn("helper is not callable, templates invoking it will fail",
				"name", name, "type", fmt.Sprintf("%T", v))
		}
		if err := r.engine.RegisterHelper(name, v); err != nil {
			return &ResolutionError{Target: target, Name: name, Err: err}
		}
	}

	r.logger.Debug("registered", "target", target, "name", name)
	r.event(events.Registered{ID: r.id, Target: target, Name: name})
	return nil
}

// registerItem adds an item arriving through a sequence or a single item
// collection under the name derived from its path. Go source items in the
// helper table are loaded as helper modules.
func (r *resolver) registerItem(target string, it *Item) error {
	if it.IsNull() {
		r.logger.Trace("skipping null item", "target", target)
		return nil
	}
	name := it.Name()
	if name == "" {
		return &ConfigurationError{
			Target: target,
			Err:    errors.Wrapf(ErrUnnamedSource, "item %q", it.Path),
		}
	}

	if target == targetHelpers && filepath.Ext(it.Path) == ".go" {
		m, err := plugin.Load(it.Path, it.Contents)
		if err != nil {
			return &ResolutionError{Target: target, Name: name, Err: err}
		}
		if !m.Empty() {
			if m.Func != nil {
				if err := r.register(targetHelpers, name, m.Func); err != nil {
					return err
				}
			}
			for k, fn := range m.Funcs {
				if err := r.register(targetHelpers, k, fn); err != nil {
					return err
				}
			}
			return nil
		}
	}

	return r.register(targetPartials, name, it.Contents)
}

// partialText converts a settled partial value to template text.
func partialText(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case *Item:
		return string(t.Contents), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	if engine.IsCallable(v) {
		out, err := callZero(v)
		if err != nil {
			return "", err
		}
		if engine.IsCallable(out) {
			return "", fmt.Errorf("partial function returned %T", out)
		}
		if out == nil {
			return "", nil
		}
		return partialText(out)
	}
	return "", fmt.Errorf("cannot use %T as a partial", v)
}
