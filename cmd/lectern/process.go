package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/book"
	"lectern/internal/processor"
)

var (
	processQuality   string
	processSchedule  bool
	processForce     bool
	processOutputDir string
)

var processCmd = &cobra.Command{
	Use:   "process <book-file>",
	Short: "Process a book into chapter notes",
	Long: `Process runs the full pipeline: extract text, detect chapters and write
notes into the vault. Books whose estimated cost is high are deferred unless
--force is given; --schedule-night defers unconditionally.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quality, err := book.ParseQuality(processQuality)
		if err != nil {
			return err
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		result := e.proc.Process(cmd.Context(), processor.Request{
			Path:           args[0],
			Quality:        quality,
			ScheduleNight:  processSchedule,
			ForceImmediate: processForce,
			OutputDir:      processOutputDir,
		})
		return printResult(result)
	},
}

func init() {
	processCmd.Flags().StringVarP(&processQuality, "quality", "q", "",
		"processing quality: draft, standard, high, academic (default from config)")
	processCmd.Flags().BoolVar(&processSchedule, "schedule-night", false,
		"defer processing instead of running now")
	processCmd.Flags().BoolVarP(&processForce, "force", "f", false,
		"process immediately regardless of estimated cost")
	processCmd.Flags().StringVar(&processOutputDir, "output-dir", "",
		"vault-relative directory override for the book's notes")
}

// printResult reports a processing result on stdout and returns an error
// for failed runs so the exit code reflects them.
func printResult(result *book.ProcessingResult) error {
	switch result.Status {
	case book.StatusScheduled:
		fmt.Printf("Deferred: %s (estimated %ds)\n", result.Metadata.Title, result.Metadata.EstimatedTime)
		fmt.Println("Re-run with --force to process now, or use resume for chapter-at-a-time processing.")
	case book.StatusCompleted:
		fmt.Printf("Processed: %s\n", result.Metadata.Title)
		if len(result.Chapters) > 0 {
			fmt.Printf("  chapters: %d (%s)\n", len(result.Chapters), result.Chapters[0].Source)
		}
		if result.OutputDir != "" {
			fmt.Printf("  notes:    %s\n", result.OutputDir)
		}
		fmt.Printf("  duration: %s\n", result.EndTime.Sub(result.StartTime).Round(time.Second))
	case book.StatusProcessing:
		fmt.Printf("Progress: %s, %d chapter(s) this run\n", result.Metadata.Title, len(result.Chapters))
		if result.OutputDir != "" {
			fmt.Printf("  notes: %s\n", result.OutputDir)
		}
	case book.StatusFailed:
		return fmt.Errorf("processing failed: %s", result.Error)
	}

	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}
