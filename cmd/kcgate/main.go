// Package main is the entry point for the kcgate CLI.
package main

import (
	"os"

	"github.com/kcgate/kcgate/cmd/kcgate/app"
	"github.com/kcgate/kcgate/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
