package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ncolesummers/deep-research-agent/pkg/config"
	"github.com/ncolesummers/deep-research-agent/pkg/observability"
	"github.com/ncolesummers/deep-research-agent/pkg/report"
	"github.com/ncolesummers/deep-research-agent/pkg/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Research a question and print the report",
	Long: `Run researches the query given as arguments, or read from stdin when no
arguments are given. Progress lines and the final markdown report go to
stdout; logs go to the configured log output.`,
	RunE: runResearch,
}

func init() {
	runCmd.Flags().String("html", "", "also write the final report as HTML to this path")
	runCmd.Flags().Duration("timeout", 0, "abandon the run after this long (default: research.timeout from config)")

	rootCmd.AddCommand(runCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	htmlPath, _ := cmd.Flags().GetString("html")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		var err error
		query, err = readQuery(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	cfg := config.LoadOrDefault(configPath)

	closeLog, err := setupLogging(cfg.Observability.Logging)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := observability.NewStructuredLogger("cli")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, Version)
	if err != nil {
		return err
	}
	defer app.Close()

	if timeout <= 0 {
		timeout = config.GetDuration(cfg.Research.Timeout, 15*time.Minute)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info(ctx, "Starting research", map[string]interface{}{
		"version":  Version,
		"provider": cfg.LLM.Provider,
		"model":    cfg.LLM.Model,
		"timeout":  timeout.String(),
	})

	var (
		result *workflow.Result
		runErr error
	)
	out := cmd.OutOrStdout()
	for msg := range app.pipeline.Run(ctx, query, workflow.WithResult(func(r *workflow.Result, err error) {
		result, runErr = r, err
	})) {
		fmt.Fprintln(out, msg)
	}
	if runErr != nil {
		return runErr
	}

	if htmlPath != "" {
		doc := report.Document{Query: result.Query, Draft: result.Draft, Sources: result.Sources}
		if err := report.WriteFile(htmlPath, doc); err != nil {
			return err
		}
		logger.Info(ctx, "HTML report written", map[string]interface{}{"path": htmlPath})
	}
	return nil
}

// readQuery prompts for a query on stdin.
func readQuery(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Enter your research query: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	query := strings.TrimSpace(line)
	if query == "" {
		return "", fmt.Errorf("no research query provided")
	}
	return query, nil
}

// setupLogging applies the logging config and returns a func releasing any
// opened log file.
func setupLogging(cfg config.LoggingConfig) (func(), error) {
	var (
		w       io.Writer
		closeFn = func() {}
	)
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	if err := observability.ConfigureLogging(cfg.Level, cfg.Format, w); err != nil {
		closeFn()
		return nil, err
	}
	return closeFn, nil
}
