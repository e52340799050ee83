package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List registered books and their progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		entries, err := e.reg.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No books registered yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tPAGES\tCHAPTERS\tPROGRESS")
		for _, entry := range entries {
			done := 0
			for _, ch := range entry.Chapters {
				if ch.Done {
					done++
				}
			}
			progress := fmt.Sprintf("%d/%d", done, len(entry.Chapters))
			if entry.Complete() {
				progress = "complete"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				entry.BookID, entry.Title, entry.Author,
				entry.TotalPages, len(entry.Chapters), progress)
		}
		return w.Flush()
	},
}
