// SPDX-License-Identifier: MPL-2.0

// Package pipeline sequences one packaging job: ingest the input, audit its
// levels, rebuild the deficient ones through the engine, optionally package
// an unsanitized client build, sanitize, package the server build and wrap
// the results in the requested distribution format.
//
// A job runs on its own goroutine and talks to the caller only through a
// stream of events. The single point where it waits on the caller is the
// rebuild authorization request, which is asynchronous and honors context
// cancellation. Every staging directory a job creates lives below one
// staging root that is torn down on every exit path.
package pipeline
