package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/config"
)

var (
	// Global flags
	configFlag  string
	dbFlag      string
	verboseFlag bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hydrus-api",
		Short: "Federated media lookup over a pool of upstream accounts",
		Long: `hydrus-api answers media listing and single item requests by
spreading them over every configured account, skipping accounts that are
rate limited, blocked, or cannot see the requested target.

Add accounts with 'hydrus-api account add', then start the server with
'hydrus-api run'.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default ~/.hydrus-api/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Account database path (overrides database.path)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewAccountCmd())
	rootCmd.AddCommand(NewNamesCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewMediaCmd())
	rootCmd.AddCommand(NewItemCmd())

	return rootCmd
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path := configFlag
	if path == "" {
		path = config.ConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if dbFlag != "" {
		cfg.Database.Path = dbFlag
	}

	level, err := parseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if verboseFlag {
		level = slog.LevelDebug
	}
	initSlog(level)

	globalConfig = cfg
	return nil
}

func initSlog(level slog.Level) {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid logging.level %q: %w", s, err)
	}
	return level, nil
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	if closeErr := closeApp(); closeErr != nil {
		slog.Error("failed to close", "error", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
