package main

import "continuity/cmd/continuity-cli/cmd"

func main() {
	cmd.Execute()
}
