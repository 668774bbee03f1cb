package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vertti/cpopen/pkg/output"
	"github.com/vertti/cpopen/pkg/spawncheck"
)

var (
	checkFlags   spawnFlags
	expectExit   int
	matchPattern string
	checkTimeout time.Duration
	checkInput   string
)

// newCheckRunner is replaced in tests.
var newCheckRunner = func() spawncheck.Runner {
	return &spawncheck.RealRunner{}
}

var checkCmd = &cobra.Command{
	Use:   "check [flags] -- program [args...]",
	Short: "Spawn a program with captured output and report the result",
	RunE:  runCheck,
}

func init() {
	checkFlags.register(checkCmd.Flags())
	checkCmd.Flags().IntVar(&expectExit, "expect-exit", 0, "exit code the program must return")
	checkCmd.Flags().StringVar(&matchPattern, "match", "", "regex pattern stdout must match")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", spawncheck.DefaultTimeout, "kill the program after this long")
	checkCmd.Flags().StringVar(&checkInput, "input", "", "data written to the program's stdin")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	c, err := checkFlags.buildCmd(cmd.Flags(), args)
	if err != nil {
		return err
	}

	sc := &spawncheck.Check{
		Cmd:          c,
		ExpectExit:   expectExit,
		MatchPattern: matchPattern,
		Timeout:      checkTimeout,
		Runner:       newCheckRunner(),
	}
	if cmd.Flags().Changed("input") {
		sc.Input = []byte(checkInput)
	}

	result := sc.Run()
	output.Fprint(cmd.OutOrStdout(), result)

	if !result.OK() {
		return &exitError{code: 1}
	}
	return nil
}
