// SPDX-License-Identifier: MPL-2.0

// Package fsutil provides filesystem helpers shared by the packaging pipeline.
//
// Removal of scratch directories and intermediate files goes through Remover,
// which retries under transient lock contention (the game engine, antivirus
// scanners and indexers routinely hold short-lived handles on freshly written
// files). Final artifacts are written with WriteFileAtomic so that a failed
// write never leaves a partial file at the destination path.
package fsutil
