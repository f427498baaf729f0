package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/agentx-labs/fleetsync/internal/fleet"
	"github.com/spf13/cobra"
)

// ErrPushFailures is returned by push --strict when any target failed.
var ErrPushFailures = errors.New("push failed for some targets")

var (
	pushStrict  bool
	pushDryRun  bool
	pushTimeout time.Duration
)

func init() {
	pushCmd.Flags().BoolVar(&pushStrict, "strict", false, "Exit nonzero if any target fails")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "Show what would change without writing")
	pushCmd.Flags().DurationVar(&pushTimeout, "timeout", 0, "Time limit per target (default from config, 2m)")
	rootCmd.AddCommand(pushCmd)
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Propagate the framework revision to every registered target",
	Long: `Advance each target's framework checkout to the framework's current
revision, copy managed files, merge structured documents, and commit the
result in the target. Targets are processed in registry order; a failing
target is reported and does not stop the others.`,
	Args: cobra.NoArgs,
	RunE: runPush,
}

func runPush(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if pushTimeout > 0 {
		s.Timeout = pushTimeout
	}
	reg, err := openRegistry(s)
	if err != nil {
		return err
	}
	syncer, err := newSyncer(s, pushDryRun)
	if err != nil {
		return err
	}

	if reg.Len() == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "[INFO] No registered targets in %s\n", reg.Path())
		return nil
	}

	report, err := syncer.Push(cmd.Context(), reg.Paths())
	if err != nil {
		return err
	}
	fleet.PrintPush(cmd.OutOrStdout(), report)

	if pushStrict && len(report.Failed) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrPushFailures, len(report.Failed), len(report.Results))
	}
	return nil
}
