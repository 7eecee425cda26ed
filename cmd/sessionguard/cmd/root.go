package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sessionguard",
	Short: "SessionGuard is a session lifecycle control service",
	Long: `A session lifecycle control service that tracks activity heartbeats and
app-visibility transitions, locking idle sessions and logging out abandoned ones.
Complete documentation is available at https://github.com/internquest/sessionguard`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
