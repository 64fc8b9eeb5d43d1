package main

import (
	"os"

	"github.com/PratikDhanave/capture-client/internal/logger"
)

// main runs one capture command: config → payload → POST → print response.
func main() {
	log := logger.GetLogger()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
