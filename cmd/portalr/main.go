package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fdbesanto2/portalr/internal/buildinfo"
	"github.com/fdbesanto2/portalr/internal/log"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "portalr",
	Short: "Download and track releases of the Portal Project dataset",
	Long: `portalr installs the PortalData dataset from its GitHub releases (or the
long-term archive) into a local directory, and reports when a newer
release is available.

The dataset is placed in a PortalData directory under the chosen base
path. Existing data is replaced only after the new release has been
downloaded and unpacked successfully.`,
	Version:       buildinfo.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.LevelFor(quietFlag, verboseFlag, debugFlag)
		log.SetDefault(log.NewText(os.Stderr, level))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Show only errors")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show informational logs")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Show debug logs")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(configCmd)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		exitWithCode(ExitUsage)
	}
}
