// cmd/precision-engine/ask.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"precision-engine/internal/common/config"
	"precision-engine/internal/pipeline/verification"
	answerquestion "precision-engine/internal/workers/study-aid/answer-question"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question through the verification pipeline",
	Long: `ask drafts an answer, checks it against the CBSE syllabus, audits it for
logical errors and predicts its board-exam score. Weak drafts are retried up to
pipeline.max_retries times.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		chapter, _ := cmd.Flags().GetString("chapter")
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := cmd.Context()
		eng, err := buildEngines(ctx, cfg, log)
		if err != nil {
			return err
		}

		wc := config.GetWorkerConfig(cfg, answerquestion.TaskType)
		handler := answerquestion.NewHandler(answerquestion.LoadConfig(wc), eng.verification, nil, log)

		out, err := handler.Execute(ctx, &answerquestion.Input{
			Subject:      subject,
			Chapter:      chapter,
			QuestionText: strings.Join(args, " "),
		})
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(os.Stdout, out.Result)
		}
		printAnswer(os.Stdout, out)
		return nil
	},
}

func init() {
	askCmd.Flags().String("subject", "", "subject name: Accountancy, Economics or Business Studies")
	askCmd.Flags().String("chapter", "", "chapter name, optional")
	askCmd.Flags().Bool("json", false, "print the full result as JSON")
	_ = askCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(askCmd)
}

func printAnswer(w io.Writer, out *answerquestion.Output) {
	heading := color.New(color.FgCyan, color.Bold).SprintFunc()
	good := color.New(color.FgGreen, color.Bold).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	status := good(string(out.Status))
	if out.Status != verification.StatusCompleted {
		status = bad(string(out.Status))
	}

	fmt.Fprintf(w, "%s %s  %s %.2f  %s %d\n\n",
		heading("Status:"), status,
		heading("Confidence:"), out.ConfidenceScore,
		heading("Retries:"), out.Retries)
	fmt.Fprintln(w, out.FinalAnswer)

	if len(out.ReferencedConcepts) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", heading("Concepts:"), strings.Join(out.ReferencedConcepts, ", "))
	}
	if r := out.Result; r != nil && r.Layer4.MaxMarks > 0 {
		fmt.Fprintf(w, "%s %.1f / %d\n", heading("Predicted score:"), r.Layer4.PredictedScore, r.Layer4.MaxMarks)
	}
	fmt.Fprintln(w, dim(fmt.Sprintf("\nrun %s in %dms", out.RunID, out.ProcessingTimeMs)))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
