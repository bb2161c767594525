// cmd/precision-engine/status.go
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"precision-engine/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers are configured and the supported syllabus",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := availability(cfg)

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return printJSON(os.Stdout, map[string]interface{}{
				"service":  st,
				"subjects": models.Catalogue,
			})
		}

		heading := color.New(color.FgCyan, color.Bold).SprintFunc()
		flag := func(ok bool) string {
			if ok {
				return color.GreenString("yes")
			}
			return color.RedString("no")
		}

		state := color.GreenString(st.Status)
		if st.Status != "operational" {
			state = color.RedString(st.Status)
		}
		fmt.Printf("%s %s\n", heading("Status:"), state)
		fmt.Printf("%s %s\n", heading("LLM available:"), flag(st.LLMAvailable))
		fmt.Printf("%s %s\n", heading("Web search available:"), flag(st.WebSearchAvailable))
		fmt.Printf("%s\n\n", st.Message)

		for _, s := range models.Catalogue {
			fmt.Printf("%s (%s)\n", heading(s.Name), s.Code)
			for i, ch := range s.Chapters {
				fmt.Printf("  %2d. %s\n", i+1, ch)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "print as JSON")
	rootCmd.AddCommand(statusCmd)
}
