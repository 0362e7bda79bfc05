package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chrisconley/gareport/internal"
	"github.com/chrisconley/gareport/internal/infra"
	"github.com/chrisconley/gareport/internal/infra/gaapi"
)

const envPrefix = "GAREPORT"

var (
	configFile string
	settings   = viper.New()
	logger     = logrus.StandardLogger()
)

var rootCmd = &cobra.Command{
	Use:   "gareport",
	Short: "Analytics report query CLI",
	Long: `gareport builds analytics report queries, runs them against the Reporting API
and prints the merged result.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (GAREPORT_*, also read from ./.env)
3. Configuration file (--config, or ./gareport.yaml, ~/.gareport/gareport.yaml)`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "configuration file (yaml or json)")
	flags.String("account", "", "service account id (email)")
	flags.String("key-file", "", "service account JSON key or PEM private key")
	flags.String("app-name", "gareport", "application name sent as user agent")
	flags.String("scope", internal.ScopeAnalyticsReadonly, "OAuth scope")
	flags.Bool("gzip", true, "request gzip-compressed responses")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("log-file", "", "write logs to a rotating file instead of stderr")
	flags.StringP("output", "o", "table", "output format: table, json, yaml or arrow")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(exportCmd)
}

// initialize loads .env, binds viper to flags, env and the config file, then
// builds the logger.
func initialize(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if err := loadSettings(settings, configFile); err != nil {
		return err
	}
	if err := settings.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	var err error
	logger, err = infra.NewLogger(infra.LogConfig{
		Level:      settings.GetString("log-level"),
		Format:     settings.GetString("log-format"),
		File:       settings.GetString("log-file"),
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	})
	return err
}

func loadSettings(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gareport")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gareport")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// serviceConfiguration builds the validated transport settings from v.
func serviceConfiguration(v *viper.Viper) (internal.ServiceConfiguration, error) {
	configurer := internal.NewServiceConfigurer().
		WithApplicationName(v.GetString("app-name")).
		WithScope(v.GetString("scope")).
		WithGZipEnabled(v.GetBool("gzip"))
	if account := v.GetString("account"); account != "" {
		configurer.WithServiceAccountID(account)
	}
	if keyFile := v.GetString("key-file"); keyFile != "" {
		configurer.WithKeyFile(keyFile)
	}
	return configurer.Build()
}

// newClient dials the Reporting API and wires query events into the log.
func newClient(ctx context.Context) (*internal.Client, error) {
	cfg, err := serviceConfiguration(settings)
	if err != nil {
		return nil, err
	}
	transport, err := gaapi.Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bus := infra.NewBus()
	bus.Subscribe(infra.QueryStarted, func(e infra.Event) {
		event := e.(internal.QueryStartedEvent)
		logger.WithFields(logrus.Fields{
			"query_id":   event.QueryID,
			"profile_id": event.Request.ProfileID(),
			"metrics":    strings.Join(event.Request.Metrics(), ","),
		}).Debug("report query started")
	})

	return internal.NewClient(transport.FetchPage, internal.WithLogger(logger), internal.WithBus(bus)), nil
}

func failedQueries(results ...internal.ReportResult) error {
	failed := 0
	for _, result := range results {
		if !result.Success() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(results))
	}
	return nil
}
