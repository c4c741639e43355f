package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-forensics/internal/config"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
	"github.com/bryanwahyu/automaton-forensics/internal/logger"
)

// globalOptions flag yang dipakai semua subcommand
type globalOptions struct {
	ConfigPath string
	LogLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{LogLevel: "warn"}

	cmd := &cobra.Command{
		Use:   "forensics",
		Short: "Run forensic tools against a file and score the result",
		Long: `forensics runs the same tool registry and scorer as the HTTP service,
locally and without uploads.

Examples:
  forensics tools
  forensics analyze suspicious.png
  forensics analyze firmware.bin -t file -t readelf -t binwalk --out report.json`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (analysis, tools.extra and log are used)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level (debug, info, warn, error)")

	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newToolsCmd(opts))
	return cmd
}

// load returns the config (defaults when no file is given) and a logger
// writing to stderr so stdout stays clean for the report.
func (o *globalOptions) load() (*config.Config, *logrus.Logger, error) {
	// tanpa --config tetap baca env (FORENSICS_TOOL_TIMEOUT, FORENSICS_SANDBOX_IMAGE, ...)
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Log
	logCfg.Output = "stderr"
	if o.LogLevel != "" {
		logCfg.Level = o.LogLevel
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func (o *globalOptions) registry() (*forensics.Registry, *config.Config, *logrus.Logger, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := forensics.DefaultRegistry(cfg.ExtraTools())
	if err != nil {
		return nil, nil, nil, err
	}
	return reg, cfg, log, nil
}
