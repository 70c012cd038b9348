// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by the package tests: environment
// and home-directory overrides, fixture trees, VPK and zip fixtures, and a
// stub engine that stands in for the game executable.
package testutil
