package main

import (
	"os"

	"github.com/simonhull/norms/internal/commands"
)

func main() {
	os.Exit(commands.Execute())
}
