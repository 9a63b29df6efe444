// Package cmd implements the nordics command line: the HTTP server, schema
// migrations and the one-shot newsletter and push jobs.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	infraconfig "github.com/nordicstoday/nordics-today/infrastructure/config"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/config"
)

const (
	envPrefix         = "NORDICS"
	defaultConfigPath = "config.yml"
)

// Version is stamped at build time with -ldflags "-X ...cmd.Version=".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "nordics",
	Short:         "Nordics Today news site backend",
	Long:          `Serves the Nordics Today page data, feeds and sitemaps, and runs the newsletter and push jobs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging and gin debug mode")

	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		sendNewsletterCommand(),
		weeklyDigestCommand(),
		notifyCommand(),
		versionCommand(),
	)
}

// Execute runs the root command.
func Execute() error {
	if err := bindFlags(); err != nil {
		return err
	}
	return rootCmd.ExecuteContext(context.Background())
}

// bindFlags lets NORDICS_CONFIG and NORDICS_DEBUG stand in for the flags.
func bindFlags() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	for _, name := range []string{"config", "debug"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind %s flag: %w", name, err)
		}
	}
	return nil
}

// loadConfig reads the config file, which may be absent, and applies the
// debug flag.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = infraconfig.GetConfigPath(defaultConfigPath)
	}

	cfg, err := config.Load(path, infraconfig.AllowMissing())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if viper.GetBool("debug") {
		cfg.Service.Debug = true
	}
	if Version != "dev" {
		cfg.Service.Version = Version
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	lc := logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Logging.Development || cfg.Service.Debug,
		Service:     cfg.Service.Name,
	}
	if cfg.Service.Debug {
		lc.Level = "debug"
	}
	return logger.New(lc)
}

// bootstrap loads config and the logger for a subcommand.
func bootstrap() (*config.Config, logger.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("nordics %s\n", Version)
		},
	}
}
