package cmd

import (
	"fmt"
	"log"
	"os"

	"JamLoop/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jamloop",
	Short: "JamLoop is a collaborative loop jamming service.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting JamLoop server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
