package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

func SetVersion(v string) { appVersion = v }

var rootCmd = &cobra.Command{
	Use:   "notegen",
	Short: "Clinical note generation from encounter transcripts",
	Long: `notegen turns an encounter transcript into structured clinical note
sections. Each section is grounded in retrieved transcript chunks, mapped to
SNOMED CT concepts and delivered to the NoteGen backend as it completes.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "notegen %s\n", appVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, serveCmd, processCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
