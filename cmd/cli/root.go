// Package cli provides command-line interface commands for rangescan.
// This package implements the Cobra-based CLI structure: a root command
// carrying the shared configuration flags and the scan command.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/rangescan/internal/config"
	"github.com/anstrom/rangescan/internal/errors"
	"github.com/anstrom/rangescan/internal/logging"
)

// Exit codes returned by Execute.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

const defaultConfigFile = "rangescan.yaml"

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rangescan",
	Short: "Concurrent TCP port scanner for IP ranges",
	Long: `rangescan probes every host of an inclusive IPv4 or IPv6 address range
on a list of TCP ports and reports the ports that accept a connection.

Open ports are listed in address and port order while the scan runs.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	os.Exit(exitCode(rootCmd.Execute()))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.IsCode(err, errors.CodeCanceled):
		return exitInterrupted
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+defaultConfigFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(defaultConfigFile, ".yaml"))
	}

	// RANGESCAN_SCANNING_WORKERS overrides scanning.workers and so on
	viper.SetEnvPrefix("RANGESCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setConfigDefaults()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	initLogging()
}

// setConfigDefaults mirrors config.Default so environment variables apply
// even without a config file.
func setConfigDefaults() {
	def := config.Default()

	viper.SetDefault("scanning.workers", def.Scanning.Workers)
	viper.SetDefault("scanning.timeout", def.Scanning.Timeout)
	viper.SetDefault("scanning.only_ports", def.Scanning.OnlyPorts)
	viper.SetDefault("scanning.max_targets", def.Scanning.MaxTargets)
	viper.SetDefault("scanning.max_concurrent_scans", def.Scanning.MaxConcurrentScans)

	viper.SetDefault("logging.level", string(def.Logging.Level))
	viper.SetDefault("logging.format", string(def.Logging.Format))
	viper.SetDefault("logging.output", def.Logging.Output)

	viper.SetDefault("metrics.listen_addr", def.Metrics.ListenAddr)
	viper.SetDefault("resolve.server", def.Resolve.Server)
	viper.SetDefault("resolve.timeout", def.Resolve.Timeout)
}

// getConfigFilePath returns the config file in use, or the default name.
func getConfigFilePath() string {
	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}
	return defaultConfigFile
}

// loadConfig loads the config file and applies environment and flag
// overrides tracked by viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigFilePath())
	if err != nil {
		return nil, err
	}

	cfg.Scanning.Workers = viper.GetInt("scanning.workers")
	cfg.Scanning.Timeout = viper.GetDuration("scanning.timeout")
	cfg.Scanning.OnlyPorts = viper.GetBool("scanning.only_ports")
	cfg.Scanning.MaxTargets = viper.GetInt("scanning.max_targets")
	cfg.Scanning.MaxConcurrentScans = viper.GetInt("scanning.max_concurrent_scans")
	if viper.IsSet("scanning.extra_ports") {
		cfg.Scanning.ExtraPorts = viper.GetIntSlice("scanning.extra_ports")
	}

	cfg.Logging.Level = logging.LogLevel(viper.GetString("logging.level"))
	cfg.Logging.Format = logging.LogFormat(viper.GetString("logging.format"))
	cfg.Logging.Output = viper.GetString("logging.output")

	cfg.Metrics.ListenAddr = viper.GetString("metrics.listen_addr")
	cfg.Resolve.Server = viper.GetString("resolve.server")
	cfg.Resolve.Timeout = viper.GetDuration("resolve.timeout")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	cfg, err := loadConfig()
	if err != nil {
		logging.SetDefault(logging.NewDefault())
		return
	}

	logConfig := cfg.Logging
	if verbose {
		logConfig.Level = logging.LevelDebug
	}
	logConfig.AddSource = logConfig.Level == logging.LevelDebug

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	logging.SetDefault(logger)

	if verbose {
		logging.Info("Structured logging initialized", "level", logConfig.Level, "format", logConfig.Format)
	}
}
