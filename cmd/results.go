package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muhameddgoda/lingoquesto-placement/internal/scoring"
	"github.com/muhameddgoda/lingoquesto-placement/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect past exam results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent exams",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		exams, err := s.ExamRepo().List(ctx, limit)
		if err != nil {
			return fmt.Errorf("list exams: %w", err)
		}

		if len(exams) == 0 {
			fmt.Println("No exams found.")
			return nil
		}

		// Header.
		fmt.Printf("%-36s  %-19s  %-6s  %-7s  %-5s  %s\n",
			"ID", "Started", "Level", "Score", "Cert", "Status")
		fmt.Println(strings.Repeat("─", 90))

		for _, e := range exams {
			status := "in progress"
			level := "-"
			score := "-"
			cert := ""
			if e.CompletedAt != nil {
				status = "complete"
				if e.HighestLevel != "" {
					level = e.HighestLevel
				}
				score = fmt.Sprintf("%.1f%%", e.OverallScore)
				if e.CertificateEligible {
					cert = "✓"
				}
			}
			fmt.Printf("%-36s  %-19s  %-6s  %-7s  %-5s  %s\n",
				e.ID,
				e.StartedAt.Local().Format("2006-01-02 15:04:05"),
				level,
				score,
				cert,
				status,
			)
		}
		return nil
	},
}

var resultsViewCmd = &cobra.Command{
	Use:   "view <exam-id>",
	Short: "View one exam's full report and submissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		e, err := s.ExamRepo().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get exam: %w", err)
		}
		if e == nil {
			return fmt.Errorf("exam %s not found", id)
		}

		sep := strings.Repeat("─", 60)

		fmt.Printf("ID:         %s\n", e.ID)
		fmt.Printf("Candidate:  %s\n", e.UserID)
		fmt.Printf("Started:    %s\n", e.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if e.CompletedAt != nil {
			fmt.Printf("Completed:  %s\n", e.CompletedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Level:      %s\n", e.HighestLevel)
			fmt.Printf("Score:      %.1f%%\n", e.OverallScore)
			fmt.Printf("Certificate: %v\n", e.CertificateEligible)
		}

		if e.ReportJSON != "" && e.ReportJSON != "{}" {
			var r scoring.Report
			if err := json.Unmarshal([]byte(e.ReportJSON), &r); err == nil {
				fmt.Println()
				fmt.Println(sep)
				fmt.Println("SKILLS")
				fmt.Println(sep)
				for _, skill := range scoring.Skills {
					sp, ok := r.SkillBreakdown[skill]
					if !ok || sp.Possible == 0 {
						continue
					}
					fmt.Printf("%-14s  %6.1f%%  (%.0f/%.0f points)\n",
						skill, sp.Percentage(), sp.Earned, sp.Possible)
				}
			}
		}

		subs, err := s.SubmissionRepo().ListByExam(ctx, id)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}
		if len(subs) > 0 {
			fmt.Println()
			fmt.Println(sep)
			fmt.Println("SUBMISSIONS")
			fmt.Println(sep)
			for _, sub := range subs {
				fmt.Printf("%-4d  %-3s  %-18s  %6.1f  %-7s  %d bytes\n",
					sub.Sequence, sub.Level, sub.QuestionType, sub.OverallScore, sub.TriggeredBy, sub.SizeBytes)
			}
		}

		events, err := s.EventRepo().ListByExam(ctx, id)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		if len(events) > 0 {
			fmt.Println()
			fmt.Println(sep)
			fmt.Println("EVENTS")
			fmt.Println(sep)
			for _, ev := range events {
				fmt.Printf("%-4d  %-15s  %s\n", ev.Sequence, ev.Kind, ev.Detail)
			}
		}

		return nil
	},
}

func init() {
	resultsListCmd.Flags().IntP("limit", "n", 20, "Number of exams to show")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsViewCmd)
}
