// Command rwire is the thinnest possible exercise of the command surface
// spec.md §4.6 describes: a terminal operator stands in for the UI
// process. The real dispatch surface (mapping arbitrary client-initiated
// operations onto these calls) is out of scope per spec.md §1 — this is
// just enough wiring to drive list/start/stop/detail/export from a shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pallab-js/r-wire/logging"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:           "rwire",
	Short:         "Live network traffic analyzer capture backend",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetDebug(debugFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable verbose debug logging")

	rootCmd.AddCommand(
		listInterfacesCmd,
		startCmd,
		stopCmd,
		detailCmd,
		exportCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
