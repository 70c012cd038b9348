// SPDX-License-Identifier: MPL-2.0

// Package config persists maptools preferences using Viper with CUE as the file format.
//
// The file lives at ~/.config/maptools/config.cue (XDG on Linux,
// ~/Library/Application Support/maptools/config.cue on macOS and
// %APPDATA%\maptools\config.cue on Windows). It is validated against an
// embedded CUE schema before being merged over the defaults; MAPTOOLS_*
// environment variables override both.
package config
