package pagination

import (
	"math"

	"github.com/google/uuid"
)

// Engine packs an ordered paragraph list into pages in a single forward
// pass. The break decision is a fixed priority-ordered rule list; the order
// is load-bearing for borderline inputs and must not be rearranged.
type Engine struct {
	opts Options
}

// NewEngine creates an engine for the given options.
func NewEngine(opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// accumulator holds the page currently being filled.
type accumulator struct {
	paragraphs []Paragraph
	words      int
}

func (a *accumulator) add(p Paragraph) {
	a.paragraphs = append(a.paragraphs, p)
	a.words += p.WordCount
}

func (a *accumulator) reset() {
	a.paragraphs = nil
	a.words = 0
}

// Paginate converts preprocessed paragraphs into an ordered page list.
// Page.Index is the global page position; the chapter builder later rewrites
// it to a chapter-local offset. Empty input yields an empty list; input
// smaller than the minimum bound yields a single page holding everything.
func (e *Engine) Paginate(paragraphs []Paragraph) []Page {
	var pages []Page
	var current accumulator

	for _, p := range paragraphs {
		if len(current.paragraphs) > 0 && e.shouldBreak(&current, p) {
			pages = append(pages, e.buildPage(len(pages), &current))
			current.reset()
		}
		current.add(p)
	}
	if len(current.paragraphs) > 0 {
		pages = append(pages, e.buildPage(len(pages), &current))
	}
	return pages
}

// shouldBreak decides whether the incoming paragraph opens a new page.
// Rules are evaluated strictly in priority order:
//  1. titles always open a new page
//  2. an image does not join a page that already holds more than one paragraph
//  3. the hard paragraph cap
//  4. minimum reached and the word budget spent
//  5. preferred size reached and more than half the word budget spent
func (e *Engine) shouldBreak(current *accumulator, incoming Paragraph) bool {
	bounds := e.opts.ParagraphsPerPage

	if incoming.Type == ParagraphTypeTitle {
		return true
	}
	if incoming.Type == ParagraphTypeImage && len(current.paragraphs) > 1 {
		return true
	}
	if len(current.paragraphs) >= bounds.Max {
		return true
	}
	if len(current.paragraphs) >= bounds.Min && current.words >= e.opts.WordsPerPage {
		return true
	}
	if len(current.paragraphs) >= bounds.Preferred && current.words > e.opts.WordsPerPage/2 {
		return true
	}
	return false
}

func (e *Engine) buildPage(index int, current *accumulator) Page {
	paragraphs := make([]Paragraph, len(current.paragraphs))
	copy(paragraphs, current.paragraphs)

	return Page{
		ID:               uuid.NewString(),
		Index:            index,
		Paragraphs:       paragraphs,
		WordCount:        current.words,
		EstimatedMinutes: estimateMinutes(current.words, e.opts.WordsPerMinute),
	}
}

func estimateMinutes(words, wordsPerMinute int) int {
	minutes := int(math.Round(float64(words) / float64(wordsPerMinute)))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Stats summarizes a page list for diagnostics. It is observational only
// and never feeds back into the packing decisions.
type Stats struct {
	PageCount            int         `json:"page_count"`
	AvgParagraphsPerPage float64     `json:"avg_paragraphs_per_page"`
	SizeHistogram        map[int]int `json:"size_histogram"` // paragraph count -> pages
}

// ComputeStats builds packing statistics for a page list.
func ComputeStats(pages []Page) Stats {
	stats := Stats{
		PageCount:     len(pages),
		SizeHistogram: make(map[int]int),
	}
	if len(pages) == 0 {
		return stats
	}
	total := 0
	for _, page := range pages {
		n := len(page.Paragraphs)
		total += n
		stats.SizeHistogram[n]++
	}
	stats.AvgParagraphsPerPage = float64(total) / float64(len(pages))
	return stats
}
