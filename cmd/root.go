package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "momo",
	Short: "Mobile money payments microservice",
	Long:  "A mobile money payments microservice for USSD push payment sessions, gateway webhooks, and payment lifecycle jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
