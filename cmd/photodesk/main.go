package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/m3rciful/photodesk/app"
	"github.com/m3rciful/photodesk/core/bootstrap"
	"github.com/m3rciful/photodesk/core/buildinfo"
	corecmd "github.com/m3rciful/photodesk/core/cmd"
	coreconfig "github.com/m3rciful/photodesk/core/config"
)

var (
	configPath string
	envFile    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "photodesk: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photodesk",
		Short: "Telegram bot that mails captioned photos to a department inbox",
		Long: `photodesk asks a Telegram user to pick a department, then takes one photo
captioned with a person's full name and mails it to the intake address.`,
		SilenceUsage: true,
		RunE:         runBot,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "YAML config file (optional; env overrides it)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.AddCommand(
		newRunCmd(),
		newCheckConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot (default)",
		RunE:  runBot,
	}
}

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate configuration, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := coreconfig.Load(configPath, envFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok: mode=%s departments=%d smtp=%s:%d\n",
				cfg.Telegram.RunMode, len(cfg.Intake.Departments), cfg.Mail.Host, cfg.Mail.Port)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := coreconfig.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return corecmd.Run(cmd.Context(), corecmd.Options{
		Config: cfg,
		Bootstrap: func(cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
			if err := bootstrap.Run(bootstrap.Options{Config: cfg}); err != nil {
				return nil, err
			}
			return app.New(cfg)
		},
	})
}
