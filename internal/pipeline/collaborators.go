// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"

	"maptools-cli/internal/audit"
)

type (
	// Decision answers a rebuild authorization request.
	Decision struct {
		Proceed bool
		// Err reports that no decision could be obtained; it fails the job.
		Err error
	}

	// Authorizer is asked before the first rebuild of a job that does not
	// rebuild automatically. The returned channel delivers one Decision;
	// closing it without a value counts as a decline. A positive answer
	// enables automatic rebuilds for the rest of the job.
	Authorizer interface {
		RequestRebuild(ctx context.Context, asset audit.MapAsset) <-chan Decision
	}

	// AuthorizerFunc adapts a synchronous function to Authorizer. The
	// function runs on its own goroutine.
	AuthorizerFunc func(ctx context.Context, asset audit.MapAsset) (bool, error)

	// EngineResolver supplies the engine executable when the job has none.
	EngineResolver interface {
		ResolveEngine(ctx context.Context) (string, error)
	}

	// EngineResolverFunc adapts a function to EngineResolver.
	EngineResolverFunc func(ctx context.Context) (string, error)
)

// RequestRebuild implements Authorizer.
func (f AuthorizerFunc) RequestRebuild(ctx context.Context, asset audit.MapAsset) <-chan Decision {
	ch := make(chan Decision, 1)
	go func() {
		defer close(ch)
		ok, err := f(ctx, asset)
		ch <- Decision{Proceed: ok, Err: err}
	}()
	return ch
}

// ResolveEngine implements EngineResolver.
func (f EngineResolverFunc) ResolveEngine(ctx context.Context) (string, error) { return f(ctx) }
