package cli

import (
	"github.com/agentx-labs/fleetsync/internal/fleet"
	"github.com/spf13/cobra"
)

var (
	pullDryRun bool
	pullDiff   bool
)

func init() {
	pullCmd.Flags().BoolVar(&pullDryRun, "dry-run", false, "Show what would be pulled without copying")
	pullCmd.Flags().BoolVar(&pullDiff, "diff", false, "Show unified diffs of modified files")
	rootCmd.AddCommand(pullCmd)
}

var pullCmd = &cobra.Command{
	Use:   "pull [path]",
	Short: "Bring a target's edits to managed files back into the framework",
	Long: `Copy managed files that are new or modified in the target into the
framework working tree. The target's version wins. Structured documents and
protected files are never pulled. Defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPull,
}

func runPull(cmd *cobra.Command, args []string) error {
	target, err := targetArg(args)
	if err != nil {
		return err
	}
	s, err := loadSettings()
	if err != nil {
		return err
	}
	syncer, err := newSyncer(s, pullDryRun)
	if err != nil {
		return err
	}

	report, err := syncer.Pull(cmd.Context(), target)
	if err != nil {
		return err
	}
	fleet.PrintPull(cmd.OutOrStdout(), report, pullDiff)
	return nil
}
