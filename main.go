// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package main

import (
	"context"
	"daytrader/config"
	"daytrader/initapp"
	"daytrader/logging"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "daytrader",
	Short:         "US equity market sessions and day trading scanners",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file (default: user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

func newApp() (*initapp.InitApp, error) {
	// The configured logger is only available after reading the configuration.
	bootLogger := logging.NewWithWriter(os.Stderr, "console", zerolog.WarnLevel)
	c := config.NewGlobalConfig(configFile, bootLogger)
	return initapp.NewInitApp(c, logLevel)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
