package cli

import (
	"errors"
	"fmt"

	"github.com/agentx-labs/fleetsync/internal/registry"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover [root]",
	Short: "Find and register linked projects below a directory",
	Long: fmt.Sprintf(`Scan up to %d directory levels below root (default: current directory)
for projects containing the framework checkout and register each one.
Hidden directories, node_modules, vendor and the framework itself are skipped.`, registry.DiscoverDepth),
	Args: cobra.MaximumNArgs(1),
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	root, err := targetArg(args)
	if err != nil {
		return err
	}
	s, err := loadSettings()
	if err != nil {
		return err
	}
	reg, err := openRegistry(s)
	if err != nil {
		return err
	}

	found, err := registry.Discover(root, s.Framework, s.LinkDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintf(out, "[INFO] No linked projects found under %s\n", root)
		return nil
	}

	added := 0
	for _, dir := range found {
		p, err := reg.Add(dir)
		if errors.Is(err, registry.ErrAlreadyRegistered) {
			fmt.Fprintf(out, "  [SKIP] %s (already registered)\n", p)
			continue
		}
		if err != nil {
			return err
		}
		added++
		fmt.Fprintf(out, "  [ OK ] %s\n", p)
	}

	if added > 0 {
		if err := reg.Save(); err != nil {
			return err
		}
		logger.Info("discovered targets", "root", root, "added", added, "registry", reg.Path())
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(out, "\n%d found, %d registered\n", len(found), added)
	return nil
}
