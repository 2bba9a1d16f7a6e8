package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vipra/internal/di"
	"vipra/internal/infrastructure/config"
	"vipra/internal/infrastructure/env"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configFile  string
	envDir      string
	logLevel    string
	logDir      string
	verbose     bool
	metricsAddr string
}

var rootCmd = &cobra.Command{
	Use:   "vipra",
	Short: "Detect mismatches between app reviews and the screens they describe",
	Long: `vipra grounds the phrases of a user review on the elements of a UI
hierarchy dump, annotates the matched elements on the screenshot and asks a
multimodal model whether the review describes a real problem on that screen.

Configuration is read from config.yaml (or --config) and VIPRA_* environment
variables. The model API key is read from the variable named by
reasoning.api_key_env, which may be set in .env.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configFile, "config", "", "Config file (default: ./config.yaml or ./configs/config.yaml)")
	f.StringVar(&rootFlags.envDir, "env-dir", ".", "Directory holding .env and .env.<APP_ENV>")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	f.StringVar(&rootFlags.logDir, "log-dir", "", "Log directory override")
	f.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Also log to stderr")
	f.StringVar(&rootFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(groundCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.Version = version
}

// newContainer loads env files and configuration, applies flag overrides and
// wires the pipeline. Offline containers have no reasoning backend.
func newContainer(cmd *cobra.Command, offline bool) (*di.Container, error) {
	envService, err := env.NewEnvService(rootFlags.envDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(rootFlags.configFile, envService.AppEnv())
	if err != nil {
		return nil, err
	}
	if rootFlags.logLevel != "" {
		cfg.Log.Level = rootFlags.logLevel
	}
	if rootFlags.logDir != "" {
		cfg.Log.Dir = rootFlags.logDir
	}
	if rootFlags.verbose {
		cfg.Log.Console = true
	}
	if rootFlags.metricsAddr != "" {
		cfg.Metrics.Addr = rootFlags.metricsAddr
	}

	var apiKey string
	if !offline {
		apiKey, err = envService.Require(cfg.Reasoning.APIKeyEnv)
		if err != nil {
			return nil, fmt.Errorf("reasoning backend needs an API key: %w", err)
		}
	}

	return di.NewContainer(cmd.Context(), di.Options{
		Config:  cfg,
		APIKey:  apiKey,
		LogName: cmd.Name(),
		Offline: offline,
	})
}
