package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muhameddgoda/lingoquesto-placement/internal/exam"
	"github.com/muhameddgoda/lingoquesto-placement/internal/question"
)

var validateCmd = &cobra.Command{
	Use:   "validate <questions-dir>",
	Short: "Validate a question bank directory",
	Long:  "Loads a1.json ... c2.json from the directory, checks every file against the bank schema, and reports whether the default exam plan can be filled.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := question.LoadBank(args[0])
		if err != nil {
			return err
		}

		cfg := exam.DefaultConfig()
		ok := true
		for _, level := range cfg.Levels {
			for t, n := range cfg.PerLevel[level] {
				have := bank.Count(level, t)
				mark := "✓"
				if have < n {
					mark = "✗"
					ok = false
				}
				fmt.Printf("%s %-3s %-18s  need %d, have %d\n", mark, level, t, n, have)
			}
		}

		if !ok {
			return fmt.Errorf("bank cannot fill the default exam plan")
		}
		fmt.Println("Bank is valid.")
		return nil
	},
}
