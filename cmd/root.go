// cmd/root.go
package cmd

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	_ "github.com/cloudlightning/cellsim/sim/improved"
	_ "github.com/cloudlightning/cellsim/sim/sosm"
)

var rootCmd = &cobra.Command{
	Use:   "cellsim",
	Short: "Discrete-event simulator for cloud datacenter cell admission",
}

// Execute runs the root command, exiting 1 on any error surfaced up
// from a subcommand's RunE (spec §6's "Exit codes: 0 success; 1
// simulation error").
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

// parseLogLevel sets the package logrus logger's level from the
// --log-level flag, matching spec §6's enumerated levels. logrus has no
// CRITICAL level, so CRITICAL maps to logrus.FatalLevel.
func parseLogLevel(level string) error {
	if strings.EqualFold(level, "CRITICAL") {
		logrus.SetLevel(logrus.FatalLevel)
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}
