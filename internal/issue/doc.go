// SPDX-License-Identifier: MPL-2.0

// Package issue turns pipeline failures into user-facing guidance.
//
// ActionableError carries the failed operation, the resource involved and
// remedies. Each failure class also has a Markdown catalog entry, rendered
// with glamour when the CLI runs in verbose mode or through "maptools docs issues".
package issue
