// SPDX-License-Identifier: MPL-2.0

// Package ingest turns a user-supplied input (a bare VPK container or a
// zip, 7z or rar archive holding one or more containers) into a single
// staged content tree.
//
// The input kind is chosen exactly once by Detect. Archives are extracted
// into a scratch directory, the containers inside them are located, and
// every container is decoded into the shared content directory strictly in
// discovery order. When two containers carry the same entry path, the one
// decoded later wins.
package ingest
