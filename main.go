package main

import (
	"os"

	"github.com/BioHazard786/tandem/cmd"
	"github.com/BioHazard786/tandem/internal/logging"
)

func main() {
	// Commands re-initialize logging once their configuration is loaded
	logging.Init(os.Getenv("LOG_LEVEL"))
	cmd.Execute()
}
