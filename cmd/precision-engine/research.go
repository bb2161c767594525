// cmd/precision-engine/research.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"precision-engine/internal/common/config"
	"precision-engine/internal/pipeline/research"
	researchchapter "precision-engine/internal/workers/study-aid/research-chapter"
)

var researchCmd = &cobra.Command{
	Use:   "research [chapter name]",
	Short: "Build study material for one chapter",
	Long: `research searches the web for chapter material and prior board questions,
extracts subtopics and notes, reviews them against the syllabus and generates
important questions. When Redis is configured, results are cached.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		refresh, _ := cmd.Flags().GetBool("refresh")
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := cmd.Context()
		eng, err := buildEngines(ctx, cfg, log)
		if err != nil {
			return err
		}

		wc := config.GetWorkerConfig(cfg, researchchapter.TaskType)
		rcfg := researchchapter.LoadConfig(wc, cfg.Research)

		var cache *researchchapter.Cache
		rdb, err := connectRedis(ctx, cfg, log, 1)
		if err != nil {
			log.Warn("research cache unavailable", map[string]interface{}{"error": err.Error()})
		} else if rdb != nil {
			defer rdb.Close()
			cache = researchchapter.NewCache(rdb.Client, rcfg.CachePrefix, rcfg.CacheTTL)
		}

		handler := researchchapter.NewHandler(rcfg, eng.research, cache, nil, log)
		out, err := handler.Execute(ctx, &researchchapter.Input{
			Subject:      subject,
			ChapterName:  strings.Join(args, " "),
			ForceRefresh: refresh,
		})
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(os.Stdout, out.Result)
		}
		printResearch(os.Stdout, out)
		return nil
	},
}

func init() {
	researchCmd.Flags().String("subject", "", "subject name: Accountancy, Economics or Business Studies")
	researchCmd.Flags().Bool("refresh", false, "ignore a cached result")
	researchCmd.Flags().Bool("json", false, "print the full result as JSON")
	_ = researchCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(researchCmd)
}

func printResearch(w io.Writer, out *researchchapter.Output) {
	heading := color.New(color.FgCyan, color.Bold).SprintFunc()
	title := color.New(color.Bold).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	r := out.Result
	fmt.Fprintf(w, "%s %s / %s\n", heading("Chapter:"), r.Subject, r.ChapterName)
	fmt.Fprintf(w, "%s %s (%.1f)", heading("Verification:"), statusColor(r.Verification.Status), r.Verification.ConfidenceScore)
	if out.Cached {
		fmt.Fprint(w, dim("  cached"))
	}
	fmt.Fprintln(w)

	if len(r.Subtopics) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Subtopics"))
		for _, s := range r.Subtopics {
			fmt.Fprintf(w, "  %s\n", title(s.Title))
			for _, p := range s.KeyPoints {
				fmt.Fprintf(w, "    - %s\n", p)
			}
		}
	}

	if len(r.QuickNotes) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Quick notes"))
		for _, n := range r.QuickNotes {
			fmt.Fprintf(w, "  - %s\n", n)
		}
	}

	if len(r.Mnemonics) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Mnemonics"))
		for _, m := range r.Mnemonics {
			fmt.Fprintf(w, "  - %s\n", m)
		}
	}

	if len(r.ImportantQuestions) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Important questions"))
		for i, q := range r.ImportantQuestions {
			fmt.Fprintf(w, "  %d. %s %s\n", i+1, q.Question, dim(fmt.Sprintf("[%d marks, %s]", q.Marks, q.Type)))
		}
	}

	if len(r.BoardQuestions) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Previous board questions"))
		for _, q := range r.BoardQuestions {
			fmt.Fprintf(w, "  - %s %s\n", q.Question, dim(fmt.Sprintf("(%s, %d marks)", q.Year, q.Marks)))
		}
	}

	if len(r.Sources) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Sources"))
		for _, s := range r.Sources {
			fmt.Fprintf(w, "  - %s %s\n", s.Title, dim(s.Link))
		}
	}

	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "%s %s\n", warn("warning:"), msg)
	}
	fmt.Fprintln(w, dim(fmt.Sprintf("\nrun %s in %dms", r.RunID, r.ProcessingTimeMs)))
}

func statusColor(s research.VerificationStatus) string {
	switch s {
	case research.StatusVerified:
		return color.GreenString(string(s))
	case research.StatusNeedsReview:
		return color.YellowString(string(s))
	default:
		return color.RedString(string(s))
	}
}
