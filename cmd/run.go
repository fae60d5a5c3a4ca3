package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muhameddgoda/lingoquesto-placement/internal/app"
	"github.com/muhameddgoda/lingoquesto-placement/internal/audio"
	"github.com/muhameddgoda/lingoquesto-placement/internal/exam"
	"github.com/muhameddgoda/lingoquesto-placement/internal/logging"
	"github.com/muhameddgoda/lingoquesto-placement/internal/question"
	examscreen "github.com/muhameddgoda/lingoquesto-placement/internal/screens/exam"
	"github.com/muhameddgoda/lingoquesto-placement/internal/store"
)

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	// Logs go to a file; the terminal belongs to the TUI.
	if f, err := logging.OpenLogFile(); err == nil {
		defer f.Close()
		logging.Configure(logging.Config{Output: f})
	} else {
		fmt.Fprintln(os.Stderr, "Log file unavailable:", err)
		logging.Configure(logging.Config{})
	}
	log := logging.WithComponent("cmd")

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	bank, err := loadBank(cmd)
	if err != nil {
		return err
	}

	audioFormat, _ := cmd.Flags().GetString("audio-format")
	audioDevice, _ := cmd.Flags().GetString("audio-device")
	device := audio.NewFFmpegDevice(audio.FFmpegConfig{
		InputFormat: audioFormat,
		InputDevice: audioDevice,
	})

	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		userID = "local"
	}

	log.Info().Str("db", dbPath).Str("user", userID).Msg("starting exam app")

	return app.Run(examscreen.Deps{
		Bank:        bank,
		Device:      device,
		Scorer:      &exam.LocalEvaluator{},
		Config:      exam.DefaultConfig(),
		UserID:      userID,
		Exams:       st.ExamRepo(),
		Submissions: st.SubmissionRepo(),
		Events:      st.EventRepo(),
	})
}

// loadBank reads the question bank from --questions, falling back to the
// built-in minimal bank so the app works out of the box.
func loadBank(cmd *cobra.Command) (*question.Bank, error) {
	dir, _ := cmd.Flags().GetString("questions")
	if dir == "" {
		fmt.Fprintln(os.Stderr, "No --questions directory given; using the built-in sample bank.")
		return question.FallbackBank(), nil
	}
	bank, err := question.LoadBank(dir)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	return bank, nil
}
