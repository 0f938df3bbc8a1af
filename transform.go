package tmplstream

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/tmplstream/engine"
	"github.com/hashicorp/tmplstream/engine/handlebars"
	"github.com/hashicorp/tmplstream/events"
	"github.com/pkg/errors"
)

// DefaultBufferSize is the capacity of the channel returned by Stream.
const DefaultBufferSize = 16

var transformCount uint64

// RenderFunc replaces the default step that executes the compiled template
// and stores the output in the item's contents. It receives a copy of the
// item. Returning a nil item emits nothing.
type RenderFunc func(tpl engine.Template, data interface{}, item *Item) (*Item, error)

// TransformInput is used as input when creating a Transform.
type TransformInput struct {
	// Data is the root context of every template.
	Data Source

	// Partials and Helpers are registered on the engine before any item
	// renders.
	Partials *Collection
	Helpers  *Collection

	// Render overrides the default render step.
	Render RenderFunc

	// Engine compiles the items. Defaults to a new handlebars engine.
	Engine engine.Engine

	// Filter is a boolean expression over Path, Name, Ext, Dir and Size.
	// Items that do not match pass through unrendered.
	Filter string

	// BufferSize is the capacity of the Stream output (default 16).
	BufferSize int

	// Logger defaults to a null logger.
	Logger hclog.Logger

	// EventHandler receives the transform's events.
	EventHandler events.EventHandler
}

// Transform renders items once every input they depend on has resolved.
type Transform struct {
	id         string
	engine     engine.Engine
	render     RenderFunc
	filter     *filter
	filterErr  error
	bufferSize int
	logger     hclog.Logger
	event      events.EventHandler

	pending *pending
	cancel  context.CancelFunc
}

// Result is one output of Stream: a rendered item or an error.
type Result struct {
	Item *Item
	Err  error
}

// NewTransform starts resolving the inputs and returns the transform. It
// does not block; items wait for resolution when rendered.
func NewTransform(i TransformInput) *Transform {
	id := fmt.Sprintf("transform-%d", atomic.AddUint64(&transformCount, 1))

	logger := i.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	eventHandler := i.EventHandler
	if eventHandler == nil {
		eventHandler = func(events.Event) {}
	}
	eng := i.Engine
	if eng == nil {
		eng = handlebars.New()
	}
	render := i.Render
	if render == nil {
		render = defaultRender
	}
	size := i.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	f, ferr := newFilter(i.Filter)

	t := &Transform{
		id:         id,
		engine:     eng,
		render:     render,
		filter:     f,
		filterErr:  ferr,
		bufferSize: size,
		logger:     logger.Named("transform"),
		event:      eventHandler,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	r := &resolver{
		id:     id,
		engine: eng,
		logger: logger.Named("resolver"),
		event:  eventHandler,
	}
	t.pending = r.start(ctx, i.Data, i.Partials, i.Helpers)
	return t
}

// ID identifies the transform in events.
func (t *Transform) ID() string { return t.id }

// Engine returns the engine the transform registers on and compiles with.
func (t *Transform) Engine() engine.Engine { return t.engine }

// Wait blocks until every input has resolved, returning the first failure.
func (t *Transform) Wait(ctx context.Context) error {
	_, err := t.pending.wait(ctx)
	return err
}

// Stop abandons resolution tasks still running. Registrations already made
// stay in place.
func (t *Transform) Stop() {
	t.cancel()
}

// Render waits for resolution, then compiles and evaluates the item. Null
// items and items not matching the filter are returned unchanged. Errors are
// ItemErrors wrapping the cause.
func (t *Transform) Render(ctx context.Context, it *Item) (*Item, error) {
	if it.IsNull() {
		t.logger.Trace("passing null item through")
		t.event(events.ItemSkipped{ID: t.id, Path: pathOf(it), Reason: "null"})
		return it, nil
	}

	out, err := t.render1(ctx, it)
	if err != nil {
		err = &ItemError{Path: it.Path, Err: err}
		t.logger.Trace("item failed", "path", it.Path, "error", err)
		t.event(events.ItemFailed{ID: t.id, Path: it.Path, Error: err})
		return nil, err
	}
	return out, nil
}

func (t *Transform) render1(ctx context.Context, it *Item) (*Item, error) {
	data, err := t.pending.wait(ctx)
	if err != nil {
		return nil, err
	}

	if t.filterErr != nil {
		return nil, &ConfigurationError{Target: "filter", Err: t.filterErr}
	}
	ok, err := t.filter.match(it)
	if err != nil {
		return nil, &ConfigurationError{Target: "filter", Err: err}
	}
	if !ok {
		t.logger.Trace("item does not match filter", "path", it.Path)
		t.event(events.ItemSkipped{ID: t.id, Path: it.Path, Reason: "filter"})
		return it, nil
	}

	tpl, err := t.engine.Compile(string(it.Contents))
	if err != nil {
		return nil, &CompilationError{Err: err}
	}

	out, err := t.render(tpl, data, it.Clone())
	if err != nil {
		var ee *EvaluationError
		if !errors.As(err, &ee) {
			err = &EvaluationError{Err: err}
		}
		return nil, err
	}
	if out == nil {
		t.logger.Trace("render emitted nothing", "path", it.Path)
		t.event(events.ItemSkipped{ID: t.id, Path: it.Path, Reason: "render"})
		return nil, nil
	}

	t.logger.Trace("rendered", "path", it.Path, "size", len(out.Contents))
	t.event(events.ItemRendered{ID: t.id, Path: out.Path, Size: len(out.Contents)})
	return out, nil
}

// Stream renders the items of src one at a time in arrival order. An item
// error is sent as a Result and processing continues; an error reading src
// is sent once and ends the stream. The channel closes when src is drained
// or ctx is done.
func (t *Transform) Stream(ctx context.Context, src ItemSource) <-chan Result {
	out := make(chan Result, t.bufferSize)
	send := func(r Result) bool {
		select {
		case out <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		for {
			it, err := src.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				send(Result{Err: errors.Wrap(err, "read item")})
				return
			}

			res, err := t.Render(ctx, it)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				if !send(Result{Err: err}) {
					return
				}
			case res != nil:
				if !send(Result{Item: res}) {
					return
				}
			}
		}
	}()
	return out
}

// Collect drains a Stream, splitting items from errors.
func Collect(ch <-chan Result) ([]*Item, []error) {
	var (
		items []*Item
		errs  []error
	)
	for r := range ch {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		items = append(items, r.Item)
	}
	return items, errs
}

// defaultRender executes tpl and stores the output in the item.
func defaultRender(tpl engine.Template, data interface{}, it *Item) (*Item, error) {
	b, err := tpl.Execute(data)
	if err != nil {
		return nil, &EvaluationError{Err: err}
	}
	it.Contents = b
	return it, nil
}

func pathOf(it *Item) string {
	if it == nil {
		return ""
	}
	return it.Path
}
