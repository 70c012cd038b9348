// SPDX-License-Identifier: MPL-2.0

package main

import cmd "maptools-cli/cmd/maptools"

func main() {
	cmd.Execute()
}
