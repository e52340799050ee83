package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <book-file>",
	Short: "Inspect a book without processing it",
	Long: `Analyze reads a book file's metadata, page count and chapter hints and
estimates processing cost. It never writes anything; running it twice gives
the same answer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		meta, err := e.proc.Analyze(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(meta)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)

		fmt.Printf("\nestimated processing time: %s\n",
			(time.Duration(meta.EstimatedTime) * time.Second).String())
		return nil
	},
}
