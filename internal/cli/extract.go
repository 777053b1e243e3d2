package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/exam-events/internal/classify"
	"github.com/pfrederiksen/exam-events/internal/extract"
	"github.com/pfrederiksen/exam-events/internal/pipeline"
	"github.com/pfrederiksen/exam-events/internal/scraper"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		title string
		link  string
		save  bool
	)
	cmd := &cobra.Command{
		Use:   "extract [TEXT]",
		Short: "Show the dates and body found in a notice text",
		Long: `Extract runs date extraction and body classification on TEXT, or on stdin
when TEXT is omitted, and prints every date mention with the role it was given.

With --save the text is processed as a scraped block titled --title and the
resulting record is written to the store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}

			text := ""
			if len(args) == 1 {
				text = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(b)
			}
			text = strings.TrimSpace(text)
			if text == "" && title == "" {
				return fmt.Errorf("no text to extract from")
			}

			x := extract.New(a.cfg.ExtractOptions())
			c := classify.NewDefault()
			out := ExtractionOutput{
				Body:       c.Classify(title, text),
				Extraction: x.Extract(text),
			}
			if text == "" {
				out.Extraction = x.Extract(title)
			}

			if save {
				if title == "" {
					return fmt.Errorf("--save requires --title")
				}
				ctx := cmd.Context()
				store, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer store.Close()

				orch := pipeline.New(pipeline.Deps{
					Extractor:  x,
					Classifier: c,
					Store:      store,
					Logger:     a.log,
				}, pipeline.Options{})
				item := orch.ProcessBlock(ctx, scraper.Block{
					Source: "manual",
					Title:  title,
					Text:   text,
					Link:   link,
				})
				out.Outcome = item.Outcome
				if item.Err != nil {
					out.Error = item.Err.Error()
				}
			}
			return writeExtraction(a.out, out, format)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Notice title, used for classification and as the exam name")
	cmd.Flags().StringVar(&link, "link", "", "Official link recorded with --save")
	cmd.Flags().BoolVar(&save, "save", false, "Store the resulting record")
	return cmd
}
