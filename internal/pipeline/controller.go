// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"maptools-cli/internal/clock"
	"maptools-cli/internal/engine"
	"maptools-cli/internal/ingest"
)

// eventBuffer is the capacity of a job's event channel.
const eventBuffer = 256

type (
	// Option configures a Controller.
	Option func(*Controller)

	// Controller runs jobs. It holds no per-job state and may run several
	// jobs; their engine runs are still serialized by the engine package.
	Controller struct {
		logger     *log.Logger
		clock      clock.Clock
		authorizer Authorizer
		resolver   EngineResolver
		runner     engine.Runner
		steamCheck func(context.Context) (bool, error)
		lockDir    string
	}
)

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the time source used for event timestamps.
func WithClock(cl clock.Clock) Option {
	return func(c *Controller) {
		if cl != nil {
			c.clock = cl
		}
	}
}

// WithAuthorizer sets the rebuild authorizer. Without one, a job that needs
// a rebuild and does not rebuild automatically is cancelled.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Controller) { c.authorizer = a }
}

// WithEngineResolver sets the fallback source of the engine path.
func WithEngineResolver(r EngineResolver) Option {
	return func(c *Controller) { c.resolver = r }
}

// WithRunner replaces the engine process runner.
func WithRunner(r engine.Runner) Option {
	return func(c *Controller) { c.runner = r }
}

// WithSteamCheck replaces the Steam presence probe. A nil probe disables it.
func WithSteamCheck(f func(context.Context) (bool, error)) Option {
	return func(c *Controller) { c.steamCheck = f }
}

// WithLockDir overrides the directory of the cross-process engine lock.
func WithLockDir(dir string) Option {
	return func(c *Controller) { c.lockDir = dir }
}

// New creates a Controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		logger:     log.New(io.Discard),
		clock:      clock.Real{},
		steamCheck: engine.SteamRunning,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start validates job and runs it on a new goroutine. The returned channel
// delivers the job's events and is closed after the single EventDone.
// Callers must drain it.
func (c *Controller) Start(ctx context.Context, job Job) <-chan Event {
	events := make(chan Event, eventBuffer)
	go func() {
		defer close(events)

		r := newRun(c, job, events)
		res, err := r.execute(ctx)
		done := Event{Kind: EventDone, Time: c.clock.Now(), Result: res, Err: err}
		if err != nil {
			done.State = StateFailed
			done.Result = nil
		} else {
			done.State = StateDone
		}
		events <- done
	}()
	return events
}

// Run starts job and blocks until it ends, passing every event except the
// terminal one to handler (which may be nil).
func (c *Controller) Run(ctx context.Context, job Job, handler func(Event)) (*Result, error) {
	var (
		res *Result
		err error
	)
	for ev := range c.Start(ctx, job) {
		if ev.Kind == EventDone {
			res, err = ev.Result, ev.Err
			continue
		}
		if handler != nil {
			handler(ev)
		}
	}
	return res, err
}

func newIngester(logger *log.Logger) *ingest.Ingester {
	return ingest.New(logger.WithPrefix("ingest"))
}
