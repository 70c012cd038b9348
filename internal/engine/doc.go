// SPDX-License-Identifier: MPL-2.0

// Package engine drives the external game executable that rebuilds a
// level's string-table dictionary.
//
// A rebuild copies the level into the engine's own maps directory, launches
// the engine on it and compares the byte size of the working copy against the
// original once the process exits. A changed size means the engine rewrote
// the level and the working copy replaces the original; an unchanged size
// means the rebuild failed and the original is left untouched.
//
// Every engine instance shares that maps directory, so rebuilds are
// serialized: an in-process mutex guards a Builder and, on Linux, an
// exclusive flock on a well-known lock file keeps concurrent maptools
// processes from launching the engine at the same time.
package engine
