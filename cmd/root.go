package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joescharf/bleue/internal/logging"
	"github.com/joescharf/bleue/internal/output"
	"github.com/joescharf/bleue/internal/store"
	"github.com/joescharf/bleue/internal/tracker"
	"github.com/joescharf/bleue/internal/tui"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store
	logger    *zap.Logger

	verbose bool
	dryRun  bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "bleue",
	Short: "Bleue - TUI-first issue tracking with agent workflows",
	Long: `bleue tracks issues and their comment history, assigns them to workers,
and runs the agent workflow steps that finish an issue.

Running bare 'bleue' launches the interactive TUI.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = versionString()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeDeps()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionString() string {
	if buildCommit == "none" || buildCommit == "" {
		return buildVersion
	}
	return fmt.Sprintf("%s (commit %s, built %s)", buildVersion, buildCommit, buildDate)
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmdContext())
	}
	rootCmd.SetVersionTemplate("Bleue CLI version {{.Version}}\n")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output and debug logging")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/bleue/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// A .env at or above the working directory fills in unset variables,
	// e.g. SUPABASE_URL for a project checkout.
	if wd, err := os.Getwd(); err == nil {
		if _, err := loadDotEnv(wd); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	viper.SetEnvPrefix("BLEUE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindLegacyEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key's default value.
func setDefaults() {
	stateDir, _ := configDirFunc()

	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "bleue.db"))
	viper.SetDefault("backend.driver", "auto")
	viper.SetDefault("backend.url", "")
	viper.SetDefault("backend.service_key", "")
	viper.SetDefault("backend.timeout", "30s")
	viper.SetDefault("backend.verify_tls", true)
	viper.SetDefault("agent.backend", "cli")
	viper.SetDefault("agent.command", "claude")
	viper.SetDefault("agent.model", "opus")
	viper.SetDefault("agent.workdir", "")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
}

// bindLegacyEnv keeps the Supabase variable names working alongside BLEUE_*.
func bindLegacyEnv() {
	_ = viper.BindEnv("backend.url", "BLEUE_BACKEND_URL", "SUPABASE_URL")
	_ = viper.BindEnv("backend.service_key", "BLEUE_BACKEND_SERVICE_KEY", "SUPABASE_SERVICE_ROLE_KEY")
	_ = viper.BindEnv("backend.timeout", "BLEUE_BACKEND_TIMEOUT", "SUPABASE_HTTP_TIMEOUT")
	_ = viper.BindEnv("backend.verify_tls", "BLEUE_BACKEND_VERIFY_TLS", "SUPABASE_HTTP_VERIFY")
	_ = viper.BindEnv("anthropic.api_key", "BLEUE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Store and logger are initialized lazily, only when commands need them.
	// This allows config/version commands to run without a backend.
}

func closeDeps() {
	if dataStore != nil {
		_ = dataStore.Close()
		dataStore = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// rootRun handles `bleue` with no subcommand: launch the TUI.
func rootRun(ctx context.Context) error {
	return tuiRun(ctx)
}

// getLogger returns the shared logger. When toFile is set and log.file is
// empty, logs go to <state_dir>/logs/bleue.log so they stay off the terminal.
func getLogger(toFile bool) (*zap.Logger, error) {
	if logger != nil {
		return logger, nil
	}

	level := viper.GetString("log.level")
	if verbose {
		level = "debug"
	}
	file := viper.GetString("log.file")
	if file == "" && toFile {
		file = filepath.Join(viper.GetString("state_dir"), "logs", "bleue.log")
	}

	l, err := logging.New(level, file)
	if err != nil {
		return nil, err
	}
	logger = l
	return logger, nil
}

// backendTimeout accepts a Go duration ("45s") or a plain number of seconds ("45").
func backendTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(viper.GetString("backend.timeout"))
	if raw == "" {
		return 30 * time.Second, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid backend.timeout %q: %w", raw, err)
	}
	return d, nil
}

// storeDriver resolves backend.driver; "auto" picks postgrest when a backend
// URL is configured and sqlite otherwise.
func storeDriver() (string, error) {
	driver := strings.ToLower(viper.GetString("backend.driver"))
	switch driver {
	case "", "auto":
		if viper.GetString("backend.url") != "" {
			return "postgrest", nil
		}
		return "sqlite", nil
	case "postgrest", "sqlite":
		return driver, nil
	}
	return "", fmt.Errorf("invalid backend.driver %q: must be auto, postgrest or sqlite", driver)
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	driver, err := storeDriver()
	if err != nil {
		return nil, err
	}

	var s store.Store
	switch driver {
	case "postgrest":
		timeout, err := backendTimeout()
		if err != nil {
			return nil, err
		}
		cfg := store.PostgRESTConfig{
			URL:        viper.GetString("backend.url"),
			ServiceKey: viper.GetString("backend.service_key"),
			Timeout:    timeout,
			VerifyTLS:  viper.GetBool("backend.verify_tls"),
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		ps, err := store.NewPostgRESTStore(cfg, store.NewHTTPClient(cfg))
		if err != nil {
			return nil, fmt.Errorf("open backend: %w", err)
		}
		ui.VerboseLog("Using backend %s (timeout %s)", cfg.URL, timeout)
		s = ps

	case "sqlite":
		ss, err := store.NewSQLiteStore(viper.GetString("db_path"))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		ui.VerboseLog("Using local database %s", viper.GetString("db_path"))
		s = ss
	}

	if err := s.Migrate(cmdContext()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// cmdContext returns the context Execute installed, or Background outside it.
func cmdContext() context.Context {
	if ctx := rootCmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// getTracker builds the issue store and comment log over the shared store.
func getTracker(logToFile bool) (*tracker.IssueStore, *tracker.CommentLog, error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}
	l, err := getLogger(logToFile)
	if err != nil {
		return nil, nil, err
	}
	return tracker.NewIssueStore(s, l), tracker.NewCommentLog(s, l), nil
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive issue browser (default command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tuiRun(cmdContext())
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func tuiRun(ctx context.Context) error {
	issues, comments, err := getTracker(true)
	if err != nil {
		return err
	}
	return tui.Run(ctx, issues, comments, logger)
}
