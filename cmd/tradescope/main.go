// Command tradescope serves the chart analysis shell and runs one-shot
// analyses from the command line.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tradescope/internal/config"
	"tradescope/internal/logger"
)

const defaultConfigPath = "configs/config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tradescope",
	Short: "Analyze market chart images with a multimodal model",
	Long: `tradescope sends a chart image to a multimodal inference service and
shows the returned recommendation, confidence, rationale and directional
annotation over the image. A second call can generate a continuation image
of the predicted trend.

Examples:
  tradescope serve --config configs/config.yaml
  tradescope analyze chart.png
  tradescope analyze chart.png --continue next.png`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $TRADESCOPE_CONFIG or "+defaultConfigPath+")")
	rootCmd.AddCommand(serveCmd, analyzeCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "reading .env failed: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath picks the flag, then the environment, then the default
// file when it exists. An empty result means defaults and environment only.
func resolveConfigPath() string {
	if p := strings.TrimSpace(configPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("TRADESCOPE_CONFIG")); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// loadConfig reads the configuration and sets up logging. The returned
// closer releases any log files.
func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	closer, err := setupLogging(cfg.App)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("config loaded (env=%s, provider=%s)", cfg.App.Env, cfg.AI.Provider)
	return cfg, closer, nil
}
