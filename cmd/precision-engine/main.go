// cmd/precision-engine/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"precision-engine/internal/common/config"
	"precision-engine/internal/common/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "precision-engine",
	Short: "Verified answers and chapter research for CBSE Class 12 Commerce",
	Long: `precision-engine answers Accountancy, Economics and Business Studies questions
through a four-stage verification pipeline and builds chapter study material from
web search and LLM review.

"serve" runs both engines as Zeebe job workers. "ask", "research" and "status"
run them once from the terminal.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")

		var err error
		if path != "" {
			cfg, err = config.LoadFromFile(path)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		// one-shot commands print results on stdout
		output := cfg.Logging.Output
		if cmd.Name() != "serve" && output == "stdout" {
			output = "stderr"
		}
		log = logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, output)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./configs/config.yaml plus the APP_ENVIRONMENT overlay)")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
