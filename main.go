package main

import (
	"os"

	"github.com/JakeFAU/hoops-harvester/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	os.Exit(cmd.Execute())
}
