package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentx-labs/fleetsync/internal/branding"
	"github.com/agentx-labs/fleetsync/internal/config"
	"github.com/agentx-labs/fleetsync/internal/fleet"
	"github.com/agentx-labs/fleetsync/internal/git"
	"github.com/agentx-labs/fleetsync/internal/manifest"
	"github.com/agentx-labs/fleetsync/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var configFile string

// logger is built in PersistentPreRunE once flags and config are known.
var logger = slog.New(slog.DiscardHandler)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps the managed assets of many project repositories
(agents, commands, hooks, scripts and settings) in step with one framework repository.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load(configFile)
		logger = config.NewLogger(cmd.ErrOrStderr(),
			viper.GetString(config.KeyLogLevel), viper.GetString(config.KeyLogFormat))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default ~/"+branding.HomeDir()+"/config.yaml)")
	pf.String("framework", "", "Framework repository root")
	pf.String("registry", "", "Registry file listing target projects")
	pf.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	pf.String("log-format", config.DefaultLogFormat, "Log format (text, json)")

	_ = viper.BindPFlag(config.KeyFramework, pf.Lookup("framework"))
	_ = viper.BindPFlag(config.KeyRegistry, pf.Lookup("registry"))
	_ = viper.BindPFlag(config.KeyLogLevel, pf.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, pf.Lookup("log-format"))
}

// Execute runs the root command with build info injected via ldflags.
// SIGINT and SIGTERM cancel the command's context.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadSettings resolves the configuration for the current invocation.
func loadSettings() (*config.Settings, error) {
	s, err := config.Resolve()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return s, nil
}

// openRegistry opens the registry named by the settings.
func openRegistry(s *config.Settings) (*registry.Registry, error) {
	reg, err := registry.Open(s.Registry)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	return reg, nil
}

// newSyncer builds a Syncer for the configured framework, loading its
// manifest override if present.
func newSyncer(s *config.Settings, dryRun bool) (*fleet.Syncer, error) {
	fw, err := s.RequireFramework()
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(fw); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("framework %s is not a directory", fw)
	}
	m, err := manifest.Load(fw)
	if err != nil {
		return nil, err
	}
	opts := fleet.Options{
		Framework: fw,
		LinkDir:   s.LinkDir,
		Timeout:   s.Timeout,
		DryRun:    dryRun,
	}
	return fleet.New(opts, m, git.NewShellClient(), logger), nil
}

// targetArg returns args[0] or the working directory.
func targetArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return wd, nil
}
