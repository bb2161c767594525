// cmd/precision-engine/db.go
package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"precision-engine/internal/common/database"
	"precision-engine/internal/models"
	"precision-engine/internal/store"
)

var errNoDatabase = errors.New("database.postgres is not configured")

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the question history database",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		pg, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer pg.Close()

		fmt.Println(color.GreenString("schema is up to date"))
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the CBSE Commerce subjects and chapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		pg, st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer pg.Close()

		n, err := st.Seed(cmd.Context(), models.Catalogue)
		if err != nil {
			return err
		}
		fmt.Printf("%s %d of %d subjects\n", color.GreenString("seeded"), n, len(models.Catalogue))
		return nil
	},
}

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List stored subjects with their ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		pg, st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer pg.Close()

		subjects, err := st.ListSubjects(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, s := range subjects {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", color.New(color.Bold).Sprint(s.Name), s.Code, s.ID)
			for _, ch := range s.Chapters {
				fmt.Fprintf(tw, "  %d. %s\t\t%s\n", ch.DisplayOrder, ch.Name, ch.ID)
			}
		}
		return tw.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [user id]",
	Short: "Show a user's past questions and answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		asJSON, _ := cmd.Flags().GetBool("json")

		pg, st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer pg.Close()

		questions, total, err := st.QuestionHistory(cmd.Context(), args[0], limit, offset)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(os.Stdout, map[string]interface{}{
				"questions": questions,
				"total":     total,
			})
		}

		dim := color.New(color.Faint).SprintFunc()
		for _, q := range questions {
			fmt.Printf("%s %s\n", color.New(color.FgCyan, color.Bold).Sprint("Q:"), q.QuestionText)
			if q.Answer != nil {
				fmt.Printf("%s %s\n", color.New(color.FgGreen, color.Bold).Sprint("A:"), q.Answer.FinalAnswer)
				fmt.Println(dim(fmt.Sprintf("   %s, confidence %.2f, %d retries", q.Answer.Status, q.Answer.ConfidenceScore, q.Answer.Retries)))
			}
			fmt.Println(dim("   " + q.CreatedAt.Format("2006-01-02 15:04")))
			fmt.Println()
		}
		fmt.Println(dim(fmt.Sprintf("%d of %d questions", len(questions), total)))
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "page size")
	historyCmd.Flags().Int("offset", 0, "page offset")
	historyCmd.Flags().Bool("json", false, "print as JSON")

	dbCmd.AddCommand(migrateCmd, seedCmd, subjectsCmd, historyCmd)
	rootCmd.AddCommand(dbCmd)
}

// openStore connects and migrates. The caller closes the returned client.
func openStore(cmd *cobra.Command) (*database.PostgresClient, *store.Store, error) {
	pg, st, err := connectStore(cmd.Context(), cfg, log, 3)
	if err != nil {
		return nil, nil, err
	}
	if pg == nil {
		return nil, nil, errNoDatabase
	}
	return pg, st, nil
}
