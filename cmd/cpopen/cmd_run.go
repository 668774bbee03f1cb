package main

import (
	"github.com/spf13/cobra"

	"github.com/vertti/cpopen/pkg/exec"
)

var runFlags spawnFlags

// newRunner is replaced in tests.
var newRunner = func() exec.Runner {
	return &exec.RealRunner{Logger: logger.Logger}
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- program [args...]",
	Short: "Spawn a program with inherited stdio and exit with its status",
	Long: "Spawn a program, wait for it and exit with its exit code.\n" +
		"A child killed by a signal makes cpopen exit with 128 plus the signal number.\n" +
		"SIGINT, SIGTERM, SIGHUP and SIGQUIT are forwarded to the child. When cpopen runs in\n" +
		"the foreground of a terminal, Ctrl-C and Ctrl-\\ already reach the child and are not sent twice.",
	RunE: runRun,
}

func init() {
	runFlags.register(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	c, err := runFlags.buildCmd(cmd.Flags(), args)
	if err != nil {
		return err
	}

	code, err := newRunner().Run(c)
	if err != nil {
		return spawnExitError(err)
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}
