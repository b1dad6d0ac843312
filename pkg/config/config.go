// Package config loads and validates webpilot run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/logging"
)

// Config represents the configuration for one webpilot run
type Config struct {
	Basic      BasicConfig      `yaml:"basic" json:"basic"`
	Browser    BrowserConfig    `yaml:"browser" json:"browser"`
	Actions    ActionsConfig    `yaml:"actions" json:"actions"`
	Navigation NavigationConfig `yaml:"navigation" json:"navigation"`
	Agent      AgentConfig      `yaml:"agent" json:"agent"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Logging    logging.Config   `yaml:"logging" json:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
}

// BasicConfig holds run-level settings
type BasicConfig struct {
	// SaveFileDir is the parent of the per-run artifact directories
	SaveFileDir string `yaml:"save_file_dir" json:"save_file_dir"`

	// DefaultWebsite is opened on start and when the last tab closes
	DefaultWebsite string `yaml:"default_website" json:"default_website"`

	// CrawlerMode records a Playwright trace of the whole run
	CrawlerMode bool `yaml:"crawler_mode" json:"crawler_mode"`
}

// BrowserConfig defines how the browser is launched
type BrowserConfig struct {
	Headless bool             `yaml:"headless" json:"headless"`
	Args     []string         `yaml:"args" json:"args"`
	Viewport browser.Viewport `yaml:"viewport" json:"viewport"`

	// Tracing records a Playwright trace even outside crawler mode
	Tracing bool `yaml:"tracing" json:"tracing"`
}

// ActionsConfig bounds driver waits
type ActionsConfig struct {
	ElementTimeout    time.Duration `yaml:"element_timeout" json:"element_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	SettleTimeout     time.Duration `yaml:"settle_timeout" json:"settle_timeout"`
}

// NavigationConfig restricts GOTO with URL glob patterns
type NavigationConfig struct {
	Allow []string `yaml:"allow" json:"allow"`
	Deny  []string `yaml:"deny" json:"deny"`
}

// AgentConfig controls the step loop
type AgentConfig struct {
	Task string `yaml:"task" json:"task"`

	MaxSteps               int           `yaml:"max_steps" json:"max_steps"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures" json:"max_consecutive_failures"`
	MinStepInterval        time.Duration `yaml:"min_step_interval" json:"min_step_interval"`

	// MaxHistoryTokens bounds the action history sent with each prompt
	MaxHistoryTokens int `yaml:"max_history_tokens" json:"max_history_tokens"`
}

// LLMConfig selects the decision model
type LLMConfig struct {
	Model   string `yaml:"model" json:"model"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"-"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it
	Addr string `yaml:"addr" json:"addr"`
}

// Default returns a configuration suitable for most runs
func Default() *Config {
	return &Config{
		Basic: BasicConfig{
			SaveFileDir:    "webpilot_results",
			DefaultWebsite: browser.DefaultURL,
		},
		Browser: BrowserConfig{
			Headless: true,
			Args:     []string{},
			Viewport: browser.Viewport{
				Width:  browser.DefaultViewportWidth,
				Height: browser.DefaultViewportHeight,
			},
		},
		Actions: ActionsConfig{
			ElementTimeout:    browser.DefaultElementTimeout,
			NavigationTimeout: browser.DefaultNavigationTimeout,
			SettleTimeout:     browser.DefaultSettleTimeout,
		},
		Agent: AgentConfig{
			MaxSteps:               30,
			MaxConsecutiveFailures: 5,
			MinStepInterval:        time.Second,
			MaxHistoryTokens:       2000,
		},
		LLM: LLMConfig{
			Model: "gpt-4o",
		},
		Logging: logging.Config{
			Level:      "info",
			Format:     "console",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML. The API key is never written.
func (c *Config) Save(path string) error {
	redacted := *c
	redacted.LLM.APIKey = ""

	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Basic.SaveFileDir == "" {
		errs = append(errs, errors.New("basic.save_file_dir is required"))
	}
	if c.Basic.DefaultWebsite == "" {
		errs = append(errs, errors.New("basic.default_website is required"))
	}

	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		errs = append(errs, fmt.Errorf("browser.viewport must be positive, got %dx%d",
			c.Browser.Viewport.Width, c.Browser.Viewport.Height))
	}

	if c.Actions.ElementTimeout <= 0 {
		errs = append(errs, errors.New("actions.element_timeout must be positive"))
	}
	if c.Actions.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("actions.navigation_timeout must be positive"))
	}
	if c.Actions.SettleTimeout <= 0 {
		errs = append(errs, errors.New("actions.settle_timeout must be positive"))
	}

	if _, err := browser.NewNavigationPolicy(c.Navigation.Allow, c.Navigation.Deny); err != nil {
		errs = append(errs, fmt.Errorf("navigation: %w", err))
	}

	if c.Agent.MaxSteps <= 0 {
		errs = append(errs, errors.New("agent.max_steps must be positive"))
	}
	if c.Agent.MaxConsecutiveFailures < 0 {
		errs = append(errs, errors.New("agent.max_consecutive_failures cannot be negative"))
	}
	if c.Agent.MinStepInterval < 0 {
		errs = append(errs, errors.New("agent.min_step_interval cannot be negative"))
	}
	if c.Agent.MaxHistoryTokens < 0 {
		errs = append(errs, errors.New("agent.max_history_tokens cannot be negative"))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid logging level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid logging format: %s (must be 'console' or 'json')", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// SessionOptions maps the configuration onto browser session options.
func (c *Config) SessionOptions() browser.SessionOptions {
	return browser.SessionOptions{
		Headless:          c.Browser.Headless,
		Args:              c.Browser.Args,
		Viewport:          c.Browser.Viewport,
		DefaultURL:        c.Basic.DefaultWebsite,
		NavigationTimeout: c.Actions.NavigationTimeout,
		SettleTimeout:     c.Actions.SettleTimeout,
		Tracing:           c.Basic.CrawlerMode || c.Browser.Tracing,
	}
}

// ExecutorOptions maps the configuration onto executor options. The
// navigation policy is compiled from the allow and deny lists.
func (c *Config) ExecutorOptions() (browser.ExecutorOptions, error) {
	policy, err := browser.NewNavigationPolicy(c.Navigation.Allow, c.Navigation.Deny)
	if err != nil {
		return browser.ExecutorOptions{}, err
	}
	return browser.ExecutorOptions{
		Viewport:          c.Browser.Viewport,
		ElementTimeout:    c.Actions.ElementTimeout,
		NavigationTimeout: c.Actions.NavigationTimeout,
		Policy:            policy,
	}, nil
}
