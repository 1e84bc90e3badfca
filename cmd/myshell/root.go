package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/myshell/internal/cli"
	"github.com/marcelocantos/myshell/internal/config"
)

var (
	cfgPath string
	command string
	noRC    bool
)

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFrom(cfgPath)
	}
	return config.Load()
}

// rootCmd runs the shell when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:           "myshell",
	Short:         "A small interactive shell with pipelines and background jobs",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}

		// Interrupts are for the foreground children. Caught, not ignored:
		// an ignored signal stays ignored across exec.
		intr := make(chan os.Signal, 1)
		signal.Notify(intr, os.Interrupt)
		defer signal.Stop(intr)

		exitCode = cli.RunShell(context.Background(), cfg, cli.ShellOptions{Command: command, NoRC: noRC})
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve a shell session as MCP tools on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		exitCode = cli.RunMCP(ctx, cfg, version)
		return nil
	},
}

var auditCount int

var auditCmd = &cobra.Command{
	Use:       "audit <verify|show>",
	Short:     "Verify or show the audit log",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"verify", "show"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		exitCode = cli.RunAudit(cmd.OutOrStdout(), cfg.Audit.Path, args, auditCount)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "myshell %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/myshell/config.yaml)")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run one command line and exit")
	rootCmd.Flags().BoolVar(&noRC, "norc", false, "skip the startup script")
	auditCmd.Flags().IntVarP(&auditCount, "count", "n", 20, "entries to show (0 for all)")

	rootCmd.AddCommand(mcpCmd, auditCmd, versionCmd)
}
