package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/browser"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2*time.Second, cfg.Actions.ElementTimeout)
	assert.Equal(t, browser.Viewport{Width: 1280, Height: 720}, cfg.Browser.Viewport)
	assert.Equal(t, browser.DefaultURL, cfg.Basic.DefaultWebsite)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webpilot.yaml")
	content := `
basic:
  default_website: https://www.example.com/
  crawler_mode: true
browser:
  headless: false
  args: ["--no-sandbox"]
  tracing: true
  viewport:
    width: 1024
    height: 768
actions:
  element_timeout: 3s
navigation:
  deny: ["*://*.internal/*"]
agent:
  task: find the cheapest flight
  max_steps: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://www.example.com/", cfg.Basic.DefaultWebsite)
	assert.True(t, cfg.Basic.CrawlerMode)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, []string{"--no-sandbox"}, cfg.Browser.Args)
	assert.True(t, cfg.Browser.Tracing)
	assert.Equal(t, browser.Viewport{Width: 1024, Height: 768}, cfg.Browser.Viewport)
	assert.Equal(t, 3*time.Second, cfg.Actions.ElementTimeout)
	assert.Equal(t, browser.DefaultNavigationTimeout, cfg.Actions.NavigationTimeout, "unset keys keep defaults")
	assert.Equal(t, "find the cheapest flight", cfg.Agent.Task)
	assert.Equal(t, 12, cfg.Agent.MaxSteps)
	assert.Equal(t, 5, cfg.Agent.MaxConsecutiveFailures)

	sess := cfg.SessionOptions()
	assert.True(t, sess.Tracing)
	assert.Equal(t, "https://www.example.com/", sess.DefaultURL)

	exec, err := cfg.ExecutorOptions()
	require.NoError(t, err)
	assert.ErrorIs(t, exec.Policy.Check("http://db.internal/"), browser.ErrNavigationBlocked)
}

func TestSessionOptions_Tracing(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.SessionOptions().Tracing)

	cfg.Browser.Tracing = true
	assert.True(t, cfg.SessionOptions().Tracing)

	cfg.Browser.Tracing = false
	cfg.Basic.CrawlerMode = true
	assert.True(t, cfg.SessionOptions().Tracing)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("basic: [unclosed"), 0600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty save dir", func(c *Config) { c.Basic.SaveFileDir = "" }},
		{"empty default website", func(c *Config) { c.Basic.DefaultWebsite = "" }},
		{"zero viewport", func(c *Config) { c.Browser.Viewport = browser.Viewport{} }},
		{"zero element timeout", func(c *Config) { c.Actions.ElementTimeout = 0 }},
		{"zero navigation timeout", func(c *Config) { c.Actions.NavigationTimeout = 0 }},
		{"bad glob", func(c *Config) { c.Navigation.Allow = []string{"[a-"} }},
		{"zero max steps", func(c *Config) { c.Agent.MaxSteps = 0 }},
		{"negative interval", func(c *Config) { c.Agent.MinStepInterval = -time.Second }},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSave_RedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "sk-secret"
	cfg.Agent.Task = "book a table"

	path := filepath.Join(t.TempDir(), "run", "config.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey, "Save must not modify the receiver")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "book a table", loaded.Agent.Task)
	assert.Equal(t, cfg.Actions, loaded.Actions)
}
