package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/party-queue/internal/config"
	"github.com/DoyleJ11/party-queue/internal/logging"
)

var envFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "party-queue",
	Short:         "Hosts party and queue sessions fed by live chat",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
