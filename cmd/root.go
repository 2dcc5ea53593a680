// Package cmd builds the command line interface for the SIGI server.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigi-ilum/sigi-go/cmd/serve"
	"github.com/sigi-ilum/sigi-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sigi",
		Short: "SIGI indicator catalog service",
		Long:  "Stores, queries and compares municipal public-lighting-tender indicators.",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(serve.Command(settings))

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.WebServer.Host, "host", viper.GetString("webserver.host"), "Interface the HTTP server binds to")
	rootCmd.PersistentFlags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port the HTTP server listens on")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
