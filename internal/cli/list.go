package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentx-labs/fleetsync/internal/registry"
	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered targets",
	Long:  `List every project in the registry and whether its framework checkout is present.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents a registered target for display.
type listEntry struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	Linked bool   `json:"linked"`
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	reg, err := openRegistry(s)
	if err != nil {
		return err
	}

	var entries []listEntry
	for p := range reg.Paths() {
		e := listEntry{Path: p}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			e.Exists = true
			e.Linked = registry.IsLinked(p, s.LinkDir)
		}
		entries = append(entries, e)
	}

	if listJSON {
		if entries == nil {
			entries = []listEntry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(out, "No registered targets in %s\n", reg.Path())
		return nil
	}
	for _, e := range entries {
		switch {
		case e.Linked:
			fmt.Fprintf(out, "  [ OK ] %s\n", e.Path)
		case e.Exists:
			fmt.Fprintf(out, "  [MISS] %s (no %s checkout)\n", e.Path, s.LinkDir)
		default:
			fmt.Fprintf(out, "  [MISS] %s (directory missing)\n", e.Path)
		}
	}
	return nil
}
