// Copyright (c) 2024 John Mylchreest <jmylchreest@gmail.com>
//
// This file is part of blsforme.
//
// blsforme is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// blsforme is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with blsforme. If not, see <https://www.gnu.org/licenses/>.

package cmd

import (
	"fmt"
	"os"

	"github.com/AerynOS/blsforme/internal/config"
	"github.com/AerynOS/blsforme/internal/manager"
	"github.com/AerynOS/blsforme/internal/privilege"
	"github.com/AerynOS/blsforme/internal/runner"
	"github.com/AerynOS/blsforme/internal/schema"
	"github.com/AerynOS/blsforme/internal/topology"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	logLevel    string
	rootPath    string
	imagePath   string
	noEfiUpdate bool
	dryRun      bool

	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blsforme",
	Short: "Manage Boot Loader Specification entries for systemd-boot",
	Long: `Discover kernels and initrds across Legacy, Blsforme and OsInfo naming
schemas, resolve the EFI System Partition and XBOOTLDR layout, and
synchronise systemd-boot loader entries from them.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Set up console logging immediately to ensure all output is formatted nicely
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
		NoColor:    false,
	})

	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/blsforme.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&rootPath, "path", "/", "system root to operate against (native mode)")
	rootCmd.PersistentFlags().StringVar(&imagePath, "image", "", "offline system root to operate against (image mode); overrides --path")
	rootCmd.PersistentFlags().BoolVar(&noEfiUpdate, "no-efi-update", false, "skip reading BLS boot-loader-interface EFI variables")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log every operation instead of performing it")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("root.path", rootCmd.PersistentFlags().Lookup("path"))
	viper.BindPFlag("root.image", rootCmd.PersistentFlags().Lookup("image"))
	viper.BindPFlag("no_efi_update", rootCmd.PersistentFlags().Lookup("no-efi-update"))
	viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Use a fixed default config file path
		viper.SetConfigFile("/etc/blsforme.yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("BLSFORME")
	viper.AutomaticEnv()

	// Set default values
	setDefaults()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("Using config file")
	} else {
		// Check if viper found a config file or not
		if viper.ConfigFileUsed() == "" {
			log.Debug().Msg("No config file found, using defaults")
		} else {
			log.Debug().Err(err).Str("config_file", viper.ConfigFileUsed()).Msg("Config file found but failed to parse, using defaults")
		}
	}
}

func setDefaults() {
	// Root configuration
	viper.SetDefault("root.path", "/")
	viper.SetDefault("root.image", "")
	viper.SetDefault("no_efi_update", false)
	viper.SetDefault("dry_run", false)

	// Kernel discovery
	viper.SetDefault("kernel.search_paths", []string{"/usr/lib/kernel"})

	// Cmdline snippet exclusions
	viper.SetDefault("behavior.excluded_cmdline_snippets", []string{})

	// Logging
	viper.SetDefault("log_level", "info")
}

func initLogging() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Set log level
	level := viper.GetString("log_level")

	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().
		Str("version", getVersion()).
		Str("commit", Commit).
		Str("build_time", BuildTime).
		Str("log_level", level).
		Msg("Logger initialized")
}

func getVersion() string {
	if Version != "" {
		return Version
	}
	return "dev"
}

// buildConfiguration resolves a config.Configuration from the global
// --path/--image/--no-efi-update flags, rejecting a Native root that isn't
// "/" per the data model's Native-implies-root-is-"/" invariant.
func buildConfiguration() (config.Configuration, error) {
	image := viper.GetString("root.image")
	var root config.Root
	if image != "" {
		root = config.Image(image)
	} else {
		root = config.Native(viper.GetString("root.path"))
	}

	cfg := config.Configuration{
		Root:    root,
		VFS:     "/",
		SkipBLS: viper.GetBool("no_efi_update"),
	}

	if !cfg.IsValid() {
		return config.Configuration{}, fmt.Errorf("blsforme: --path %q is not \"/\"; use --image for an offline root", root.Path())
	}
	return cfg, nil
}

// buildManager wires a Probe and classified Schema against cfg and returns
// a ready-to-use Manager.
func buildManager(cfg config.Configuration) (*manager.Manager, error) {
	s, err := schema.Classify(cfg.Root.Path())
	if err != nil {
		return nil, fmt.Errorf("blsforme: classify schema: %w", err)
	}
	return buildManagerForSchema(cfg, s)
}

// buildManagerForSchema is buildManager with an already-classified schema,
// used by callers that discover entries (and so classify the schema)
// themselves before wiring the Manager.
func buildManagerForSchema(cfg config.Configuration, s schema.Schema) (*manager.Manager, error) {
	probe := topology.NewProbe(cfg.VFS)
	r := runner.New(viper.GetBool("dry_run"))
	return manager.New(cfg, probe, s, r), nil
}

// requireRoot exits with an error if the process is not euid=0, used by
// every state-changing subcommand.
func requireRoot() error {
	if err := privilege.CheckRoot(); err != nil {
		return fmt.Errorf("blsforme: %w", err)
	}
	return nil
}
