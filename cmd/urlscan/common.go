package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/urlscan/internal/classifier"
	"github.com/nao1215/urlscan/internal/config"
	"github.com/nao1215/urlscan/internal/log"
	"github.com/nao1215/urlscan/internal/report"
	"github.com/nao1215/urlscan/internal/scan"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getGlobalString retrieves a persistent string flag, falling back to def
// when the command runs without the root command.
func getGlobalString(cmd *cobra.Command, name, def string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return def
		}
	}
	return v
}

// loadConfig builds a Config from defaults, the configuration file and the
// environment. Command flags are applied afterwards by each command so that
// only flags the user actually set override the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getGlobalString(cmd, "log-format", config.LogFormatText)
	cfg.ConfigFilePath = getGlobalString(cmd, "config", "")

	// An explicitly requested file must exist; the default locations are optional.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}

// applyString copies a string flag into dst when the user set it.
func applyString(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// applyInt copies an int flag into dst when the user set it.
func applyInt(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// applyBool copies a bool flag into dst when the user set it.
func applyBool(cmd *cobra.Command, name string, dst *bool) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// newLogger creates the secure structured logger for cfg.
// Logs go to stderr so that reports on stdout stay machine readable.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return log.New(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat == config.LogFormatJSON)
}

// loadCapability prepares the classifier described by cfg.
//
// A missing or unreadable model is not an error: the scanner then reports
// the classifier as untrained and scores with the rule table only.
func loadCapability(cfg *config.Config, logger *slog.Logger) scan.Capability {
	if cfg.DisableClassifier {
		logger.Info("classifier disabled, using rule-based scoring only")
		return scan.NoClassifier()
	}

	variant, err := classifier.ParseVariant(cfg.ModelVariant)
	if err != nil {
		logger.Warn("invalid model variant, using rule-based scoring only", "error", err)
		return scan.NoClassifier()
	}

	clf, err := classifier.New(variant,
		classifier.WithSeed(cfg.Seed),
		classifier.WithLogger(logger),
	)
	if err != nil {
		logger.Warn("failed to create classifier, using rule-based scoring only", "error", err)
		return scan.NoClassifier()
	}

	if err := clf.Load(cfg.ModelPath); err != nil {
		if errors.Is(err, classifier.ErrNotFound) {
			logger.Info("no trained model found, using rule-based scoring only",
				"path", cfg.ModelPath,
			)
		} else {
			logger.Warn("failed to load model, using rule-based scoring only",
				"path", cfg.ModelPath,
				"error", err,
			)
		}
	}
	return scan.WithPredictor(clf)
}

// openOutput returns the report destination: the configured report file,
// or fallback when none is set. The returned close function is never nil.
func openOutput(cfg *config.Config, fallback io.Writer) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return fallback, func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list every scanned URL and are only readable by the owner.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter selects the report format requested by cfg.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}
