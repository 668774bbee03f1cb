package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vertti/cpopen/pkg/config"
	"github.com/vertti/cpopen/pkg/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	verbose bool
	cfg     = config.Default()
	logger  = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "cpopen",
	Short: "Spawn processes through a minimal fork/exec path",
	Long: "cpopen starts programs without running any runtime code between fork and exec.\n" +
		"Defaults can be set with CPOPEN_* environment variables; flags override them.",
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log spawn details to stderr")
}

// setup loads environment defaults and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c

	logCfg := logging.DefaultConfig()
	logCfg.Level, logCfg.Development = cfg.LogLevel, cfg.LogDev
	if verbose {
		logCfg = logging.DevelopmentConfig()
	}
	l, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("invalid %s_LOG_LEVEL: %w", config.Prefix, err)
	}
	logger = l
	return nil
}

func main() {
	os.Exit(execute())
}

// execute runs the root command and maps its error to an exit code.
func execute() int {
	err := rootCmd.Execute()
	_ = logger.Sync()

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "cpopen: %v\n", ee.err)
		}
		return ee.code
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cpopen: %v\n", err)
		return 1
	}
	return 0
}
