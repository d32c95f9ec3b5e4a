package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tendril",
	Short: "Tendril is a cooperative fiber runtime",
	Long:  `Tendril multiplexes lightweight cooperative fibers over carrier goroutines. This CLI runs synthetic workloads against the runtime and serves its diagnostics.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")
}
