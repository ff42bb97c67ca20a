package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/config"
	"github.com/garyjia/finnexus/internal/container"
	"github.com/garyjia/finnexus/pkg/utils"
)

var version = "1.0.0"

// app is built by the root command before any subcommand runs
type app struct {
	configPath string
	container  *container.Container
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "finctl",
		Short: "FinNexus command-line tools",
		Long: `finctl runs FinNexus operations without the HTTP server.

It reads the same configuration as the server. The AI key comes from
AI_API_KEY (or API_KEY) in the environment or a .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return a.start(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.stop()
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "configs/config.yaml", "path to the YAML config file")

	root.AddCommand(newExtractCmd(a), newAskCmd(a), newExportCmd(a))
	return root
}

func (a *app) start(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	// stdout carries command output
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(cmd.Context()); err != nil {
		return err
	}
	a.container = c
	return nil
}

func (a *app) stop() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	_ = a.logger.Sync()
	return err
}
