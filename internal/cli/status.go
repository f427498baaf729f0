package cli

import (
	"encoding/json"
	"fmt"

	"github.com/agentx-labs/fleetsync/internal/fleet"
	"github.com/spf13/cobra"
)

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how far each target is behind the framework",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

// statusEntry is the JSON form of a status row.
type statusEntry struct {
	Target  string `json:"target"`
	State   string `json:"state"`
	Behind  int    `json:"behind,omitempty"`
	Pinned  string `json:"pinned,omitempty"`
	Subject string `json:"subject,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Gap     string `json:"version_gap,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type statusOutput struct {
	Revision string        `json:"revision,omitempty"`
	Subject  string        `json:"subject,omitempty"`
	Tag      string        `json:"tag,omitempty"`
	Error    string        `json:"error,omitempty"`
	Targets  []statusEntry `json:"targets"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	reg, err := openRegistry(s)
	if err != nil {
		return err
	}
	syncer, err := newSyncer(s, false)
	if err != nil {
		return err
	}

	report := syncer.Status(cmd.Context(), reg.Paths())

	if statusJSON {
		return writeStatusJSON(cmd, report)
	}
	fleet.PrintStatus(cmd.OutOrStdout(), report)
	return nil
}

func writeStatusJSON(cmd *cobra.Command, report *fleet.StatusReport) error {
	out := statusOutput{
		Revision: report.Revision,
		Subject:  report.Subject,
		Tag:      report.Tag,
		Error:    report.SourceErr,
		Targets:  make([]statusEntry, 0, len(report.Rows)),
	}
	for _, r := range report.Rows {
		out.Targets = append(out.Targets, statusEntry{
			Target:  r.Target,
			State:   string(r.State),
			Behind:  r.Behind,
			Pinned:  r.Pinned,
			Subject: r.Subject,
			Tag:     r.Tag,
			Gap:     r.Gap,
			Reason:  r.Reason,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
