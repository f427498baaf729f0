package fleet

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/agentx-labs/fleetsync/internal/git"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrintPush writes a human-readable push report to w.
func PrintPush(w io.Writer, r *PushReport) {
	p := message.NewPrinter(language.English)

	verb := "Pushing"
	if r.DryRun {
		verb = "Dry run: would push"
	}
	fmt.Fprintf(w, "%s framework %s\n\n", verb, git.Short(r.Revision))

	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeUpdated:
			fmt.Fprintf(w, "  [ OK ] %s (%s -> %s)\n", res.Target, shortOrDash(res.From), git.Short(res.To))
			for _, f := range res.Copied {
				fmt.Fprintf(w, "           copy  %s\n", f)
			}
			for _, f := range res.Merged {
				fmt.Fprintf(w, "           merge %s\n", f)
			}
			if !r.DryRun && !res.Committed {
				fmt.Fprintf(w, "           nothing to commit\n")
			}
		case OutcomeUpToDate:
			fmt.Fprintf(w, "  [SKIP] %s (up to date)\n", res.Target)
		case OutcomeFailed:
			fmt.Fprintf(w, "  [FAIL] %s: %s\n", res.Target, res.Reason)
		}
	}

	fmt.Fprintln(w)
	p.Fprintf(w, "%d updated, %d up to date, %d failed\n", len(r.Updated), len(r.UpToDate), len(r.Failed))
}

// PrintPull writes a human-readable pull report to w. Unified diffs of
// modified files are included when showDiff is set.
func PrintPull(w io.Writer, r *PullReport, showDiff bool) {
	p := message.NewPrinter(language.English)

	if r.Empty() {
		p.Fprintf(w, "No changes to pull from %s (%d files identical)\n", r.Target, r.UnchangedCount)
		return
	}

	fmt.Fprintf(w, "Changes in %s:\n\n", r.Target)
	for _, res := range r.NewFiles {
		fmt.Fprintf(w, "  [NEW ] %s\n", res.Path)
	}
	for _, res := range r.ModifiedFiles {
		fmt.Fprintf(w, "  [MOD ] %s (%s)\n", res.Path, res.Summary())
	}

	if showDiff {
		for _, res := range r.ModifiedFiles {
			if res.Diff == "" {
				continue
			}
			fmt.Fprintln(w)
			fmt.Fprint(w, res.Diff)
			if !strings.HasSuffix(res.Diff, "\n") {
				fmt.Fprintln(w)
			}
		}
	}

	fmt.Fprintln(w)
	if r.Applied {
		p.Fprintf(w, "Pulled %d new and %d modified files into the framework\n", len(r.NewFiles), len(r.ModifiedFiles))
		fmt.Fprintln(w, "Review and commit the changes in the framework repository.")
		return
	}
	p.Fprintf(w, "Dry run: %d new and %d modified files would be pulled\n", len(r.NewFiles), len(r.ModifiedFiles))
}

// PrintStatus writes the status table to w.
func PrintStatus(w io.Writer, r *StatusReport) {
	if r.SourceErr != "" {
		fmt.Fprintf(w, "Framework: unavailable (%s)\n\n", r.SourceErr)
	} else {
		fmt.Fprintf(w, "Framework: %s %s%s\n\n", git.Short(r.Revision), r.Subject, tagSuffix(r.Tag))
	}

	if len(r.Rows) == 0 {
		fmt.Fprintln(w, "No registered targets.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tSTATE\tPINNED\tMESSAGE")
	counts := make(map[SyncState]int)
	for _, row := range r.Rows {
		counts[row.State]++
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Target, row.State, shortOrDash(row.Pinned), rowDetail(row))
	}
	tw.Flush()

	p := message.NewPrinter(language.English)
	fmt.Fprintln(w)
	p.Fprintf(w, "%d up to date, %d behind, %d missing, %d unknown\n",
		counts[StateUpToDate], counts[StateBehind], counts[StateMissing], counts[StateUnknown])
}

func rowDetail(row StatusRow) string {
	switch row.State {
	case StateBehind:
		d := fmt.Sprintf("%d commit", row.Behind)
		if row.Behind != 1 {
			d += "s"
		}
		d += " behind"
		if row.Gap != "" {
			d += fmt.Sprintf(", %s version behind", row.Gap)
		}
		if row.Subject != "" {
			d += ": " + row.Subject
		}
		return d + tagSuffix(row.Tag)
	case StateUpToDate:
		return row.Subject + tagSuffix(row.Tag)
	default:
		return row.Reason
	}
}

func tagSuffix(tag string) string {
	if tag == "" {
		return ""
	}
	return " (" + tag + ")"
}

