package pagination

import "fmt"

// Version identifies the pagination algorithm generation. It is part of
// every cache key, so bumping it invalidates all previously cached results.
const (
	Version   = "4"
	Algorithm = "greedy-paragraph-packing"
)

// ParagraphBounds constrains how many paragraphs a single page may hold.
type ParagraphBounds struct {
	// Min is advisory: a book smaller than Min still yields one page.
	Min int `json:"min"`

	// Max is a hard cap, never exceeded.
	Max int `json:"max"`

	// Preferred is the soft target used together with the word budget.
	Preferred int `json:"preferred"`
}

// Options holds the pagination configuration. The fields under
// ParagraphsPerPage, WordsPerPage, PagesPerChapter and WordsPerMinute affect
// the output shape and are part of the cache fingerprint; BypassCache is a
// per-call flag and is not.
type Options struct {
	ParagraphsPerPage ParagraphBounds `json:"paragraphs_per_page"`

	// WordsPerPage is the word-count target that triggers a page break once
	// the minimum paragraph count is reached.
	WordsPerPage int `json:"words_per_page"`

	PagesPerChapter int `json:"pages_per_chapter"`

	// WordsPerMinute drives the reading-time estimates.
	WordsPerMinute int `json:"words_per_minute"`

	// BypassCache forces recomputation even when a cached result exists.
	// The fresh result is still stored.
	BypassCache bool `json:"-"`
}

// DefaultOptions returns the configuration used when a caller supplies
// nothing.
func DefaultOptions() Options {
	return Options{
		ParagraphsPerPage: ParagraphBounds{Min: 3, Max: 8, Preferred: 5},
		WordsPerPage:      300,
		PagesPerChapter:   5,
		WordsPerMinute:    200,
	}
}

// Validate checks that the option values are internally consistent.
func (o Options) Validate() error {
	b := o.ParagraphsPerPage
	if b.Min <= 0 {
		return fmt.Errorf("paragraphs per page: min must be positive, got %d", b.Min)
	}
	if b.Max < b.Min {
		return fmt.Errorf("paragraphs per page: max (%d) must not be less than min (%d)", b.Max, b.Min)
	}
	if b.Preferred < b.Min || b.Preferred > b.Max {
		return fmt.Errorf("paragraphs per page: preferred (%d) must lie in [%d, %d]", b.Preferred, b.Min, b.Max)
	}
	if o.WordsPerPage <= 0 {
		return fmt.Errorf("words per page must be positive, got %d", o.WordsPerPage)
	}
	if o.PagesPerChapter <= 0 {
		return fmt.Errorf("pages per chapter must be positive, got %d", o.PagesPerChapter)
	}
	if o.WordsPerMinute <= 0 {
		return fmt.Errorf("words per minute must be positive, got %d", o.WordsPerMinute)
	}
	return nil
}

// withDefaults fills any zero-valued field from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ParagraphsPerPage == (ParagraphBounds{}) {
		o.ParagraphsPerPage = def.ParagraphsPerPage
	}
	if o.WordsPerPage == 0 {
		o.WordsPerPage = def.WordsPerPage
	}
	if o.PagesPerChapter == 0 {
		o.PagesPerChapter = def.PagesPerChapter
	}
	if o.WordsPerMinute == 0 {
		o.WordsPerMinute = def.WordsPerMinute
	}
	return o
}
