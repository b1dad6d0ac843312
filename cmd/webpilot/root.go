package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entrhq/webpilot/pkg/browser/pwdriver"
	"github.com/entrhq/webpilot/pkg/config"
)

// Version is set at build time:
//
//	go build -ldflags "-X main.Version=1.2.0" ./cmd/webpilot
var Version = "0.1.0"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "webpilot",
		Short:         "Drive a browser with a vision-capable model",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("webpilot v{{.Version}}\n")

	root.AddCommand(newRunCommand(), newInstallCommand(), newVersionCommand())
	return root
}

func newInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the Playwright driver and Chromium",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pwdriver.Install(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Playwright and Chromium are installed")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webpilot v%s\n", Version)
		},
	}
}

// newViper reads WEBPILOT_* environment variables, with dots in keys
// replaced by underscores (agent.max_steps -> WEBPILOT_AGENT_MAX_STEPS).
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("WEBPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig resolves the run configuration: defaults, then the config file,
// then environment variables, then flags.
func loadConfig(v *viper.Viper, path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("agent.task") {
		cfg.Agent.Task = v.GetString("agent.task")
	}
	if v.IsSet("agent.max_steps") {
		cfg.Agent.MaxSteps = v.GetInt("agent.max_steps")
	}
	if v.IsSet("basic.default_website") {
		cfg.Basic.DefaultWebsite = v.GetString("basic.default_website")
	}
	if v.IsSet("basic.save_file_dir") {
		cfg.Basic.SaveFileDir = v.GetString("basic.save_file_dir")
	}
	if v.IsSet("basic.crawler_mode") {
		cfg.Basic.CrawlerMode = v.GetBool("basic.crawler_mode")
	}
	if v.IsSet("browser.headless") {
		cfg.Browser.Headless = v.GetBool("browser.headless")
	}
	if v.IsSet("browser.tracing") {
		cfg.Browser.Tracing = v.GetBool("browser.tracing")
	}
	if v.IsSet("llm.model") {
		cfg.LLM.Model = v.GetString("llm.model")
	}
	if v.IsSet("llm.base_url") {
		cfg.LLM.BaseURL = v.GetString("llm.base_url")
	}
	if v.IsSet("llm.api_key") {
		cfg.LLM.APIKey = v.GetString("llm.api_key")
	}
	if v.IsSet("logging.level") {
		cfg.Logging.Level = v.GetString("logging.level")
	}
	if v.IsSet("metrics.addr") {
		cfg.Metrics.Addr = v.GetString("metrics.addr")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
