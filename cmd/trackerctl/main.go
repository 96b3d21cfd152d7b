package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag  string
	keyFlag  string
	userFlag string
	rootCmd  = &cobra.Command{
		Use:   "trackerctl",
		Short: "CLI client for the tracker service REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Tracker service base URL")
	rootCmd.PersistentFlags().StringVarP(&keyFlag, "key", "k", "", "API key (defaults to the local dev key)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
