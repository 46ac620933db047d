package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/msgload/internal/config"
	"github.com/vvka-141/msgload/internal/files/filesystem"
	"github.com/vvka-141/msgload/internal/logging"
	"github.com/vvka-141/msgload/internal/pipeline"
	"github.com/vvka-141/msgload/internal/store"
	"github.com/vvka-141/msgload/pkg/msgload"
)

type loadFlagValues struct {
	table, idColumn, categoriesColumn string
	delimiter, onSchemaMismatch       string
	configFile, metricsFile           string
	timeout                           time.Duration
}

func registerLoadFlags(cmd *cobra.Command, f *loadFlagValues) {
	cmd.Flags().StringVar(&f.table, "table", msgload.DefaultTableName,
		"Destination table, dropped and recreated on every run")
	cmd.Flags().StringVar(&f.idColumn, "id-column", msgload.DefaultIDColumn,
		"Join key column present in both input files")
	cmd.Flags().StringVar(&f.categoriesColumn, "categories-column", msgload.DefaultCategoriesColumn,
		"Packed category field in the categories file")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", string(msgload.DefaultDelimiter),
		"Field delimiter of both input files (a single character or \"tab\")")
	cmd.Flags().StringVar(&f.onSchemaMismatch, "on-schema-mismatch", string(msgload.SchemaPolicyFail),
		"What to do with categories rows that disagree with the first row: fail|skip")
	cmd.Flags().StringVar(&f.configFile, "config", "",
		"Settings file (default: ./"+config.FileName+" if present)")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "",
		"Write run metrics in Prometheus text format to this file\n"+
			"Suitable for node_exporter's textfile collector")
	cmd.Flags().DurationVar(&f.timeout, "timeout", msgload.DefaultTimeout,
		"Abort the run after this long\n"+
			"Examples: 30s, 5m, 1h30m")
}

// flagSettings returns only the flags the user set explicitly, so that
// unset flags do not mask the environment or the config file.
func flagSettings(cmd *cobra.Command, f *loadFlagValues) config.Settings {
	var s config.Settings
	changed := cmd.Flags().Changed
	if changed("table") {
		s.Table = f.table
	}
	if changed("id-column") {
		s.IDColumn = f.idColumn
	}
	if changed("categories-column") {
		s.CategoriesColumn = f.categoriesColumn
	}
	if changed("delimiter") {
		s.Delimiter = f.delimiter
	}
	if changed("on-schema-mismatch") {
		s.OnSchemaMismatch = f.onSchemaMismatch
	}
	if changed("metrics-file") {
		s.MetricsFile = f.metricsFile
	}
	if changed("timeout") {
		s.Timeout = f.timeout.String()
	}
	return s
}

// loadSettingsFile reads the config file. An explicitly named file must
// exist. The default file is optional.
func loadSettingsFile(path string) (config.Settings, error) {
	explicit := path != ""
	if !explicit {
		path = config.FileName
	}

	s, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !explicit {
			return config.Settings{}, nil
		}
		if errors.Is(err, config.ErrConfigNotFound) {
			return config.Settings{}, fmt.Errorf("%w: %w", msgload.ErrInvalidConfig, err)
		}
		return config.Settings{}, err
	}
	return *s, nil
}

// buildRunConfig layers defaults, the config file, the environment and
// explicit flags, in increasing precedence.
func buildRunConfig(cmd *cobra.Command, args []string, f *loadFlagValues, lookupEnv func(string) (string, bool)) (msgload.RunConfig, error) {
	cfg := msgload.DefaultRunConfig()
	cfg.MessagesPath = args[0]
	cfg.CategoriesPath = args[1]
	cfg.Destination = args[2]
	cfg.Verbose = getVerboseFlag(cmd)

	fileSettings, err := loadSettingsFile(f.configFile)
	if err != nil {
		return msgload.RunConfig{}, err
	}

	settings := fileSettings.
		Merge(config.FromEnv(lookupEnv)).
		Merge(flagSettings(cmd, f))
	if err := settings.Apply(&cfg); err != nil {
		return msgload.RunConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return msgload.RunConfig{}, err
	}
	return cfg, nil
}

// loadDotEnv exports the variables from an env file. A missing file is
// not an error. A file that exists but cannot be parsed is.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", msgload.ErrInvalidConfig, path, err)
	}
	return nil
}

func runLoad(cmd *cobra.Command, args []string, f *loadFlagValues) error {
	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := buildRunConfig(cmd, args, f, os.LookupEnv)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	logger := logging.NewConsoleLoggerTo(stderr, cfg.Verbose)
	defer logger.Sync() //nolint:errcheck
	out := newPresenter(stderr)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			out.Interrupt("Received interrupt signal, cancelling load...")
			cancel()
		case <-ctx.Done():
		}
	}()

	runner := pipeline.NewRunner(filesystem.NewOSFileSystem(), logger, store.OpenDestination)
	res, err := runner.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	out.Success(res)
	return nil
}
