package main

import (
	"github.com/spf13/cobra"

	"lectern/internal/book"
	"lectern/internal/processor"
)

var (
	resumeQuality   string
	resumeChapters  int
	resumeOutputDir string
)

var resumeCmd = &cobra.Command{
	Use:   "resume <book-file>",
	Short: "Process a book a few chapters at a time",
	Long: `Resume processes the next batch of chapters for a book, creating the
chapter plan on first contact. Progress is durable: each invocation picks up
where the last one stopped, so large scanned books can be worked through
across many short sessions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quality, err := book.ParseQuality(resumeQuality)
		if err != nil {
			return err
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		result := e.proc.Resume(cmd.Context(), processor.ResumeRequest{
			Path:      args[0],
			Quality:   quality,
			Chapters:  resumeChapters,
			OutputDir: resumeOutputDir,
		})
		return printResult(result)
	},
}

func init() {
	resumeCmd.Flags().StringVarP(&resumeQuality, "quality", "q", "",
		"processing quality: draft, standard, high, academic (default from config)")
	resumeCmd.Flags().IntVarP(&resumeChapters, "chapters", "n", 1,
		"chapters to process this invocation")
	resumeCmd.Flags().StringVar(&resumeOutputDir, "output-dir", "",
		"vault-relative directory override, applied on first contact only")
}
