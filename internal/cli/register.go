package cli

import (
	"errors"
	"fmt"

	"github.com/agentx-labs/fleetsync/internal/registry"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(unregisterCmd)
}

var registerCmd = &cobra.Command{
	Use:   "register [path]",
	Short: "Add a linked project to the registry",
	Long: `Add a project to the registry. The project must contain the framework
checkout (default .framework). Defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := targetArg(args)
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

		path, err := reg.Register(target, s.LinkDir)
		switch {
		case errors.Is(err, registry.ErrAlreadyRegistered):
			fmt.Fprintf(cmd.OutOrStdout(), "[INFO] %s is already registered\n", path)
			return nil
		case err != nil:
			return err
		}
		logger.Info("registered target", "target", path, "registry", reg.Path())
		fmt.Fprintf(cmd.OutOrStdout(), "[ OK ] Registered %s\n", path)
		return nil
	},
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister [path]",
	Short: "Remove a project from the registry",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := targetArg(args)
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

		path, err := reg.Unregister(target)
		switch {
		case errors.Is(err, registry.ErrNotRegistered):
			fmt.Fprintf(cmd.OutOrStdout(), "[INFO] %s is not registered\n", path)
			return nil
		case err != nil:
			return err
		}
		logger.Info("unregistered target", "target", path, "registry", reg.Path())
		fmt.Fprintf(cmd.OutOrStdout(), "[ OK ] Unregistered %s\n", path)
		return nil
	},
}
