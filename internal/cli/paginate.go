// Package cli implements the non-server subcommands.
package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/leafread/leafread/internal/pagination"
)

// PaginateCommand paginates a paragraphs JSON file and prints a summary.
// Useful for inspecting how a book will split without running the server.
type PaginateCommand struct {
	File            string
	BookID          string
	Min             int
	Max             int
	Preferred       int
	WordsPerPage    int
	PagesPerChapter int
	AsJSON          bool
}

func NewPaginateCommand() *PaginateCommand {
	return &PaginateCommand{}
}

func (cmd *PaginateCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("paginate", flag.ExitOnError)

	fs.StringVar(&cmd.File, "file", "", "Path to a JSON file holding a paragraph array (required)")
	fs.StringVar(&cmd.BookID, "book", "cli", "Book id recorded in the result")
	fs.IntVar(&cmd.Min, "min", 0, "Minimum paragraphs per page (0 = default)")
	fs.IntVar(&cmd.Max, "max", 0, "Maximum paragraphs per page (0 = default)")
	fs.IntVar(&cmd.Preferred, "preferred", 0, "Preferred paragraphs per page (0 = default)")
	fs.IntVar(&cmd.WordsPerPage, "words", 0, "Word-count target per page (0 = default)")
	fs.IntVar(&cmd.PagesPerChapter, "chapter", 0, "Pages per chapter (0 = default)")
	fs.BoolVar(&cmd.AsJSON, "json", false, "Print the full PagedBook as JSON instead of a summary")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s paginate [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Paginate a paragraphs JSON file and print the resulting structure.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s paginate -file ./book.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s paginate -file ./book.json -min 4 -max 6 -preferred 5 -json\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.File == "" {
		fs.Usage()
		return fmt.Errorf("file is required")
	}
	return nil
}

func (cmd *PaginateCommand) Run() error {
	raw, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", cmd.File, err)
	}

	var paragraphs []pagination.Paragraph
	if err := json.Unmarshal(raw, &paragraphs); err != nil {
		return fmt.Errorf("parse %s: %w", cmd.File, err)
	}

	opts := cmd.options()
	svc := pagination.NewService(nil, nil)
	book, err := svc.Paginate(paragraphs, cmd.BookID, opts)
	if err != nil {
		return err
	}

	if cmd.AsJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(book)
	}

	fmt.Printf("Book %q: %d paragraphs -> %d pages in %d chapters (%d words, ~%d min)\n",
		book.BookID, book.TotalParagraphs, book.TotalPages, book.TotalChapters,
		book.TotalWords, book.EstimatedReadingTime)

	var pages []pagination.Page
	for _, ch := range book.Chapters {
		pages = append(pages, ch.Pages...)
	}
	stats := pagination.ComputeStats(pages)
	fmt.Printf("Average %.1f paragraphs per page. Page sizes:\n", stats.AvgParagraphsPerPage)

	sizes := make([]int, 0, len(stats.SizeHistogram))
	for size := range stats.SizeHistogram {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	for _, size := range sizes {
		fmt.Printf("  %2d paragraphs: %d pages\n", size, stats.SizeHistogram[size])
	}

	for _, ch := range book.Chapters {
		partial := ""
		if ch.IsPartial {
			partial = " (partial)"
		}
		fmt.Printf("Chapter %d %q: pages %d-%d%s\n", ch.Index+1, ch.Title, ch.StartPageIndex, ch.EndPageIndex, partial)
	}
	return nil
}

func (cmd *PaginateCommand) options() pagination.Options {
	opts := pagination.DefaultOptions()
	if cmd.Min > 0 {
		opts.ParagraphsPerPage.Min = cmd.Min
	}
	if cmd.Max > 0 {
		opts.ParagraphsPerPage.Max = cmd.Max
	}
	if cmd.Preferred > 0 {
		opts.ParagraphsPerPage.Preferred = cmd.Preferred
	}
	if cmd.WordsPerPage > 0 {
		opts.WordsPerPage = cmd.WordsPerPage
	}
	if cmd.PagesPerChapter > 0 {
		opts.PagesPerChapter = cmd.PagesPerChapter
	}
	return opts
}
