package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentx-labs/fleetsync/internal/config"
	"github.com/agentx-labs/fleetsync/internal/git"
	"github.com/agentx-labs/fleetsync/internal/manifest"
	"github.com/agentx-labs/fleetsync/internal/registry"
	"github.com/spf13/cobra"
)

var checkManifest string

func init() {
	doctorCmd.Flags().StringVar(&checkManifest, "check-manifest", "", "Validate a manifest file at the given path")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the sync setup",
	Long: `Check that git is available, the framework is configured and is a git
repository, its manifest is valid, and every registered target is linked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if checkManifest != "" {
			return runManifestCheck(out, checkManifest)
		}

		failures := runAllChecks(cmd.Context(), out)
		if failures > 0 {
			return fmt.Errorf("%d check(s) failed", failures)
		}
		return nil
	},
}

// runAllChecks prints every check and returns the number that failed.
func runAllChecks(ctx context.Context, out io.Writer) int {
	failures := 0
	client := git.NewShellClient()

	fmt.Fprintln(out, "Runtime check:")
	if path, err := client.Available(); err != nil {
		fmt.Fprintln(out, "  [MISS] git not found")
		failures++
	} else {
		fmt.Fprintf(out, "  [ OK ] git found at %s\n", path)
	}

	s, err := loadSettings()
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return failures + 1
	}

	fmt.Fprintln(out, "Framework check:")
	fw, err := s.RequireFramework()
	switch {
	case err != nil:
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		failures++
	default:
		if rev, err := client.Head(ctx, fw); err != nil {
			fmt.Fprintf(out, "  [FAIL] %s is not a git repository: %v\n", fw, err)
			failures++
		} else {
			fmt.Fprintf(out, "  [ OK ] %s at %s\n", fw, git.Short(rev))
		}
		if _, err := manifest.Load(fw); err != nil {
			fmt.Fprintf(out, "  [FAIL] %v\n", err)
			failures++
		} else if _, err := os.Stat(filepath.Join(fw, manifest.FileName)); err == nil {
			fmt.Fprintf(out, "  [ OK ] %s is valid\n", manifest.FileName)
		} else {
			fmt.Fprintf(out, "  [INFO] No %s, using built-in defaults\n", manifest.FileName)
		}
	}

	fmt.Fprintln(out, "Registry check:")
	reg, err := registry.Open(s.Registry)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return failures + 1
	}
	fmt.Fprintf(out, "  [ OK ] %s (%d targets)\n", reg.Path(), reg.Len())
	for p := range reg.Paths() {
		if registry.IsLinked(p, s.LinkDir) {
			fmt.Fprintf(out, "  [ OK ] %s\n", p)
			continue
		}
		fmt.Fprintf(out, "  [WARN] %s has no %s checkout\n", p, s.LinkDir)
	}

	fmt.Fprintln(out, "Config check:")
	if _, err := os.Stat(config.FilePath()); err == nil {
		fmt.Fprintf(out, "  [ OK ] %s\n", config.FilePath())
	} else {
		fmt.Fprintf(out, "  [INFO] No config file at %s\n", config.FilePath())
	}

	return failures
}

func runManifestCheck(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	result, err := manifest.Validate(data)
	if err != nil {
		return err
	}
	if !result.Valid {
		fmt.Fprintf(out, "[FAIL] %s\n", path)
		for _, issue := range result.Issues {
			fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
		}
		return fmt.Errorf("manifest %s is invalid", path)
	}
	if _, err := manifest.Parse(data, path); err != nil {
		fmt.Fprintf(out, "[FAIL] %v\n", err)
		return err
	}
	fmt.Fprintf(out, "[ OK ] %s is valid\n", path)
	return nil
}
