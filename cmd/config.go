package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bleue"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage bleue configuration.

Running bare 'bleue config' is the same as 'bleue config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate renders config.yaml from viper.AllSettings(). Secrets stay
// commented out so they never land in the file.
const configTemplate = `# bleue configuration
# See: bleue config show (for effective values and sources)

# State/data directory (default: ~/.config/bleue)
# state_dir: {{ .state_dir }}

# Local SQLite database path, used by the sqlite driver (default: ~/.config/bleue/bleue.db)
# db_path: {{ .db_path }}

# Issue backend
backend:
  # auto, postgrest or sqlite. auto uses postgrest when url is set.
  driver: "{{ .backend.driver }}"

  # PostgREST endpoint, e.g. your Supabase project URL (env: SUPABASE_URL)
  url: "{{ .backend.url }}"

  # Service role key; prefer the SUPABASE_SERVICE_ROLE_KEY env var
  # service_key: ""

  # Request timeout, a duration ("30s") or seconds ("30")
  timeout: "{{ .backend.timeout }}"

  # Verify TLS certificates (default: true)
  verify_tls: {{ .backend.verify_tls }}

# Agent settings
agent:
  # cli runs the claude command; api calls the Anthropic API directly
  backend: "{{ .agent.backend }}"

  # Claude command for the cli backend (default: "claude")
  command: "{{ .agent.command }}"

  # Model used when a workflow step names none (default: "opus")
  model: "{{ .agent.model }}"

  # Repository the agent works in (default: current directory)
  workdir: "{{ .agent.workdir }}"

# Anthropic API, used when agent.backend is api
anthropic:
  # Prefer the ANTHROPIC_API_KEY env var
  # api_key: ""
  model: "{{ .anthropic.model }}"

# Logging
log:
  # debug, info, warn or error
  level: "{{ .log.level }}"

  # Log file; the TUI defaults to <state_dir>/logs/bleue.log
  file: "{{ .log.file }}"
`

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// renderConfig fills configTemplate with the effective settings.
func renderConfig() ([]byte, error) {
	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse config template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	return buf.Bytes(), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	content, err := renderConfig()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
	} else {
		if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(cfgPath, content, 0o600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		ui.Success("Config file created: %s", cfgPath)
	}

	fmt.Fprintf(ui.Out, "\n%s", content)
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key     string
	EnvVars []string
	Secret  bool
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVars: []string{"BLEUE_STATE_DIR"}},
	{Key: "db_path", EnvVars: []string{"BLEUE_DB_PATH"}},
	{Key: "backend.driver", EnvVars: []string{"BLEUE_BACKEND_DRIVER"}},
	{Key: "backend.url", EnvVars: []string{"BLEUE_BACKEND_URL", "SUPABASE_URL"}},
	{Key: "backend.service_key", EnvVars: []string{"BLEUE_BACKEND_SERVICE_KEY", "SUPABASE_SERVICE_ROLE_KEY"}, Secret: true},
	{Key: "backend.timeout", EnvVars: []string{"BLEUE_BACKEND_TIMEOUT", "SUPABASE_HTTP_TIMEOUT"}},
	{Key: "backend.verify_tls", EnvVars: []string{"BLEUE_BACKEND_VERIFY_TLS", "SUPABASE_HTTP_VERIFY"}},
	{Key: "agent.backend", EnvVars: []string{"BLEUE_AGENT_BACKEND"}},
	{Key: "agent.command", EnvVars: []string{"BLEUE_AGENT_COMMAND"}},
	{Key: "agent.model", EnvVars: []string{"BLEUE_AGENT_MODEL"}},
	{Key: "agent.workdir", EnvVars: []string{"BLEUE_AGENT_WORKDIR"}},
	{Key: "anthropic.api_key", EnvVars: []string{"BLEUE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"}, Secret: true},
	{Key: "anthropic.model", EnvVars: []string{"BLEUE_ANTHROPIC_MODEL"}},
	{Key: "log.level", EnvVars: []string{"BLEUE_LOG_LEVEL"}},
	{Key: "log.file", EnvVars: []string{"BLEUE_LOG_FILE"}},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	if driver, err := storeDriver(); err == nil {
		ui.Info("Issue backend: %s", driver)
	}
	fmt.Fprintln(ui.Out)

	fileValues := readConfigFileValues(cfgPath)
	table := ui.Table([]string{"Key", "Value", "Source"})
	for _, k := range configKeys {
		val := fmt.Sprint(viper.Get(k.Key))
		if k.Secret {
			val = maskSecret(viper.GetString(k.Key))
		}
		_ = table.Append([]string{k.Key, val, detectSource(k.Key, k.EnvVars, fileValues)})
	}
	return table.Render()
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from. The first
// env var set wins, matching viper.BindEnv precedence.
func detectSource(key string, envVars []string, fileValues map[string]bool) string {
	for _, envVar := range envVars {
		if _, ok := os.LookupEnv(envVar); ok {
			return fmt.Sprintf("(env: %s)", envVar)
		}
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

// maskSecret keeps the last four characters of a secret.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'bleue config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
