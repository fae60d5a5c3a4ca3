package cmd

import (
	"github.com/muhameddgoda/lingoquesto-placement/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lingoquesto",
	Short: "Spoken language placement exam",
	Long:  "LingoQuesto Placement — terminal app that runs a level-gated spoken language placement exam (CEFR A1-C2) against your microphone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LINGOQUESTO_DB env var)")
	rootCmd.Flags().String("questions", "", "Directory with per-level question files (a1.json ... c2.json)")
	rootCmd.Flags().String("user", "", "Candidate identifier recorded with the exam")
	rootCmd.Flags().String("audio-format", "", "ffmpeg input format (pulse, alsa, avfoundation)")
	rootCmd.Flags().String("audio-device", "", "ffmpeg input device name")

	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then LINGOQUESTO_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
