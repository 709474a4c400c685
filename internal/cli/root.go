// Package cli implements the gasflow command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fpawel/gasflow/internal/config"
	"github.com/fpawel/gasflow/internal/pkg"
	"github.com/powerman/structlog"
	"github.com/spf13/cobra"
)

var log = structlog.New(structlog.KeyUnit, "cli")

type BuildInfo struct {
	Commit string
	Date   string
}

func (x BuildInfo) String() string {
	if x.Commit == "" {
		return "dev"
	}
	return x.Commit + " " + x.Date
}

func Execute(build BuildInfo) {
	cmd := newRootCmd()
	cmd.Version = build.String()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type globals struct {
	configFile string
	logLevel   string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	g := new(globals)
	cmd := &cobra.Command{
		Use:          "gasflow",
		Short:        "Natural gas Z-factor and flow standardization",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.configFile)
			if err != nil {
				return err
			}
			g.cfg = cfg
			level := g.logLevel
			if level == "" {
				level = cfg.LogLevel
			}
			pkg.InitLog(level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&g.configFile, "config", config.DefaultFilename, "config file; created with defaults when missing")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or err; overrides the config")

	cmd.AddCommand(
		serveCmd(g),
		calcCmd(g),
		batchCmd(g),
		ctlCmd(g),
		zserverCmd(g),
	)
	return cmd
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
