package main

import (
	"log"
	"os"

	"github.com/sigi-ilum/sigi-go/cmd"
	"github.com/sigi-ilum/sigi-go/internal/conf"
	"github.com/sigi-ilum/sigi-go/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.Init(settings.Debug)
	logging.Structured().Info("Configuration loaded", "debug", settings.Debug)

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
