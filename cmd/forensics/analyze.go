package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-forensics/internal/application/analysis"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/executor/docker"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/executor/process"
)

// AnalyzeOptions flag untuk command analyze
type AnalyzeOptions struct {
	Tools   []string
	Timeout time.Duration
	Out     string
	Sandbox string
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze one file and print the JSON report",
		Long: `Runs the selected tools sequentially against FILE, scores the outputs
and prints the report document. Without --tool the default selection
(file, strings, exiftool) is used.`,
		Example: `  forensics analyze photo.jpg
  forensics analyze doc.bin -t file -t strings -t binwalk --timeout 10s -o doc.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, cfg, log, err := global.registry()
			if err != nil {
				return err
			}

			path := args[0]
			st, err := os.Stat(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file not found: %s", path)
				}
				return err
			}
			if st.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}

			timeout := opts.Timeout
			if timeout <= 0 {
				timeout = cfg.ToolTimeout()
			}
			var runner forensics.Runner = process.NewRunner(timeout, log)
			sandbox := opts.Sandbox
			if sandbox == "" {
				sandbox = cfg.Analysis.SandboxImage
			}
			if sandbox != "" {
				abs, err := filepath.Abs(path)
				if err != nil {
					return err
				}
				path = abs
				runner = docker.NewRunner(runner, sandbox, []string{filepath.Dir(abs)}, log)
			}
			d := &analysis.Dispatcher{
				Registry: reg,
				Runner:   runner,
				Log:      log,
			}

			tools := make([]forensics.ToolName, 0, len(opts.Tools))
			for _, t := range opts.Tools {
				tools = append(tools, forensics.ToolName(t))
			}

			name := filepath.Base(path)
			results := d.Dispatch(cmd.Context(), path, tools)
			a := forensics.Score(results, name)
			report := &forensics.Report{
				File:    name,
				Score:   a.Score,
				Verdict: a.Verdict,
				Reasons: a.Reasons,
				Results: results,
			}

			data, err := json.MarshalIndent(report.Document(), "", "  ")
			if err != nil {
				return err
			}
			if opts.Out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(opts.Out, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d (%s) -> %s\n", name, a.Score, a.Verdict, opts.Out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.Tools, "tool", "t", nil, "tool to run (repeatable)")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "per-tool timeout (default analysis.toolTimeoutSeconds)")
	flags.StringVarP(&opts.Out, "out", "o", "", "write the report to this file instead of stdout")
	flags.StringVar(&opts.Sandbox, "sandbox", "", "run the tools inside this container image")

	return cmd
}
