package main

import (
	"JamLoop/cmd"
)

func main() {
	cmd.Execute()
}
