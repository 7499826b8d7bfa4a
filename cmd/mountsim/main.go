package main

import (
	"os"

	"github.com/go-drift/mountref/cmd/mountsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
