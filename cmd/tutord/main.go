// Tutord is a personalized-tutoring memory daemon. It serves consent-gated,
// difficulty-windowed retrieval over a student's learning history and
// synthesizes cited answers with a language model.
//
// Usage:
//
//	# Start the daemon with the default config file
//	tutord serve
//
//	# Use an explicit config file
//	tutord serve --config /etc/tutord/config.yaml
//
//	# Configure via environment
//	SERVER_PORT=9390 COMPLETION_API_KEY=sk-... tutord serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tutord",
	Short: "Personalized tutoring memory daemon",
	Long: `tutord retrieves a student's prior learning history from a vector store,
ranks it by semantic relevance and recency, gates it through consent and
safety policy, and synthesizes cited answers with a language model.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tutord\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/tutord/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
