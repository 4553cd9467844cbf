package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dbflood",
	Short: "dbflood - multi-database sustained-load correctness harness",
	Long: `dbflood drives concurrent INSERT -> COMMIT -> SELECT -> VERIFY transaction
cycles against a target database for a fixed duration, tracking throughput and
error counts and flagging committed rows that cannot be immediately re-read.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ddlCmd)
}

func printBanner() {
	banner := `
       ____  ____  ______)
  ____/ / /_  __)/ / ___  ___  ____
 / __  / __ \/ /_/ / __ \/ __ \/ __ )
/ /_/ / /_/ / __/ / /_/ / /_/ / /_/ /
\__,_/_.___/_/ /_/\____/\____/\__,_/
Multi-Database Load Test Harness
`
	fmt.Println(banner)
}
