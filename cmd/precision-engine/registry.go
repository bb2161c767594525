// cmd/precision-engine/registry.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"precision-engine/internal/common/config"
	"precision-engine/pkg/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the activity registry the workers are started from",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TASK TYPE\tVERSION\tTIMEOUT\tRETRIES\tENABLED")
		for _, a := range reg.Activities {
			enabled := color.GreenString("yes")
			if cfg != nil && !config.IsWorkerEnabled(cfg, a.TaskType) {
				enabled = color.YellowString("no")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", a.TaskType, a.Version, a.Timeout, a.Retries, enabled)
		}
		return tw.Flush()
	},
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check required fields, timeouts and input schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Println(color.GreenString("Registry validation passed."))
		return nil
	},
}

var registryExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write the built-in registry to a file for editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Default()
		if err != nil {
			return err
		}
		reg.LastUpdated = time.Now().Format(time.RFC3339)

		data, err := json.MarshalIndent(reg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal registry: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(args[0]), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("failed to write registry: %w", err)
		}
		fmt.Printf("Wrote %d activities to %s\n", len(reg.Activities), args[0])
		return nil
	},
}

func init() {
	registryCmd.PersistentFlags().String("path", "", "registry file; the built-in registry when empty")

	registryCmd.AddCommand(registryListCmd, registryValidateCmd, registryExportCmd)
	rootCmd.AddCommand(registryCmd)
}

func loadRegistry(cmd *cobra.Command) (*registry.ActivityRegistry, error) {
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		return registry.Default()
	}
	return registry.LoadRegistry(path)
}
