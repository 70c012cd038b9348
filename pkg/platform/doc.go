// SPDX-License-Identifier: MPL-2.0

// Package platform isolates operating-system specifics: OS names, the game
// executable's name, Windows reserved file names and sandboxed hosts
// (Flatpak, Snap) where external tools must be spawned on the host.
package platform
