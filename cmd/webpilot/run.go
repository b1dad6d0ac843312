package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entrhq/webpilot/pkg/agent"
	"github.com/entrhq/webpilot/pkg/artifact"
	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/browser/pwdriver"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/llm/openai"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/prompt"
)

func newRunCommand() *cobra.Command {
	v := newViper()
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a task in the browser",
		Example: `  webpilot run --task "Find the opening hours of the city library" --website https://www.google.com/
  webpilot run --config webpilot.yaml --headless=false
  WEBPILOT_LLM_API_KEY=sk-... webpilot run --task "..." --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configPath)
			if err != nil {
				return err
			}
			if cfg.Agent.Task == "" {
				return errors.New("a task is required (use --task or agent.task in the config file)")
			}
			return runTask(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.String("task", "", "task to complete")
	flags.String("website", "", "website opened at start")
	flags.String("save-dir", "", "directory for run artifacts")
	flags.Bool("headless", true, "run the browser without a window")
	flags.Bool("crawler-mode", false, "record a Playwright trace of the run")
	flags.Int("max-steps", 0, "maximum number of steps")
	flags.String("model", "", "model used to decide actions")
	flags.String("base-url", "", "OpenAI-compatible API base URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")

	bindFlags(v, cmd, map[string]string{
		"agent.task":            "task",
		"basic.default_website": "website",
		"basic.save_file_dir":   "save-dir",
		"browser.headless":      "headless",
		"basic.crawler_mode":    "crawler-mode",
		"agent.max_steps":       "max-steps",
		"llm.model":             "model",
		"llm.base_url":          "base-url",
		"logging.level":         "log-level",
		"metrics.addr":          "metrics-addr",
	})
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		// Lookup cannot fail for flags defined above
		_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

// runTask wires the session, executor, decider and agent together and runs
// cfg.Agent.Task to completion.
func runTask(ctx context.Context, cfg *config.Config, out io.Writer) error {
	start := time.Now()
	run, err := artifact.NewRun(cfg.Basic.SaveFileDir, start)
	if err != nil {
		return err
	}
	defer run.Close()

	if cfg.Logging.File == "" && cfg.Logging.Dir == "" {
		cfg.Logging.Dir = run.Dir()
	}
	if err := logging.Init(cfg.Logging); err != nil {
		return err
	}
	logger := logging.NewLogger("webpilot")
	logger.Infof("Run directory: %s", run.Dir())

	if err := run.SaveConfig(cfg); err != nil {
		logger.Warnf("Failed to save config snapshot: %v", err)
	}

	registry := prometheus.NewRegistry()
	metrics := browser.NewMetrics(registry)
	if cfg.Metrics.Addr != "" {
		stop, err := serveMetrics(cfg.Metrics.Addr, registry, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	provider, err := openai.NewProvider(cfg.LLM.APIKey,
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL),
	)
	if err != nil {
		return err
	}

	launcher, err := pwdriver.NewLauncher()
	if err != nil {
		return fmt.Errorf("%w (run 'webpilot install' first)", err)
	}
	defer func() {
		if err := launcher.Stop(); err != nil {
			logger.Warnf("%v", err)
		}
	}()

	sessionOpts := cfg.SessionOptions()
	sessionOpts.TracePath = run.TracePath()
	sessionOpts.Logger = logging.NewLogger("session")
	sessionOpts.Metrics = metrics
	session := browser.NewSessionManager(launcher, sessionOpts)
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := session.Stop(); err != nil {
			logger.Errorf("Failed to stop browser session: %v", err)
		}
	}()

	execOpts, err := cfg.ExecutorOptions()
	if err != nil {
		return err
	}
	execOpts.Logger = logging.NewLogger("executor")
	execOpts.Metrics = metrics
	executor := browser.NewExecutor(session, execOpts)

	builder := prompt.NewBuilder(prompt.NewBudget(cfg.LLM.Model, cfg.Agent.MaxHistoryTokens))
	pilot := agent.New(session, executor, agent.NewLLMDecider(provider, builder),
		agent.WithRun(run),
		agent.WithWebsite(cfg.Basic.DefaultWebsite),
		agent.WithIndexer(browser.NewIndexer(logging.NewLogger("indexer"), metrics)),
		agent.WithMaxSteps(cfg.Agent.MaxSteps),
		agent.WithMaxConsecutiveFailures(cfg.Agent.MaxConsecutiveFailures),
		agent.WithMinStepInterval(cfg.Agent.MinStepInterval),
	)

	result, runErr := pilot.Run(ctx, cfg.Agent.Task)
	printSummary(out, result, run.Dir())
	return runErr
}

func printSummary(out io.Writer, result *artifact.Result, dir string) {
	status := "not completed"
	if result.Completed {
		status = "completed"
	}
	fmt.Fprintf(out, "Task %s after %d steps in %s\n", status, result.Steps, result.Duration.Round(time.Millisecond))
	for i, h := range result.History {
		fmt.Fprintf(out, "  %d. %s\n", i+1, h)
	}
	fmt.Fprintf(out, "Results saved to %s\n", dir)
}

// serveMetrics exposes registry on addr/metrics until the returned stop
// function is called.
func serveMetrics(addr string, registry *prometheus.Registry, logger *logging.Logger) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server failed: %v", err)
		}
	}()
	logger.Infof("Serving metrics on http://%s/metrics", listener.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
