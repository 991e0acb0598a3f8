package pagination

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ValidationError reports a post-pagination invariant violation. It is fatal
// to the call that produced it: returning a structurally broken PagedBook
// would corrupt persisted reading positions downstream.
type ValidationError struct {
	BookID string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pagination of %q produced invalid result: %s", e.BookID, e.Reason)
}

// ResultCache memoizes PagedBooks per (bookID, shape-affecting options).
// Implementations absorb their own storage failures; both methods are
// best-effort from the service's point of view.
type ResultCache interface {
	Get(bookID string, opts Options) (*PagedBook, bool)
	Set(bookID string, opts Options, book *PagedBook)
}

// Service is the pipeline entry point: preprocess, paginate, build
// chapters, assemble the PagedBook, consult and update the result cache.
type Service struct {
	cache ResultCache // nil disables caching entirely
	log   *zap.Logger
	now   func() time.Time
}

func NewService(cache ResultCache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cache: cache, log: log, now: time.Now}
}

// Paginate runs the full pipeline for one book. It is pure with respect to
// its inputs aside from the cache side effect: identical inputs always
// produce an equivalent PagedBook.
func (s *Service) Paginate(paragraphs []Paragraph, bookID string, opts Options) (*PagedBook, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pagination options: %w", err)
	}

	if s.cache != nil && !opts.BypassCache {
		if book, ok := s.cache.Get(bookID, opts); ok {
			s.log.Debug("pagination cache hit", zap.String("book", bookID))
			return book, nil
		}
	}

	prepared := Preprocess(paragraphs)

	engine, err := NewEngine(opts)
	if err != nil {
		return nil, err
	}
	pages := engine.Paginate(prepared)
	chapters := BuildChapters(pages, opts)

	book := assemble(bookID, prepared, chapters, opts, s.now())
	if err := validate(book, len(prepared), opts); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(bookID, opts, book)
	}

	s.log.Info("paginated book",
		zap.String("book", bookID),
		zap.Int("paragraphs", book.TotalParagraphs),
		zap.Int("pages", book.TotalPages),
		zap.Int("chapters", book.TotalChapters))

	return book, nil
}

func assemble(bookID string, paragraphs []Paragraph, chapters []Chapter, opts Options, generatedAt time.Time) *PagedBook {
	book := &PagedBook{
		BookID:        bookID,
		Chapters:      chapters,
		TotalChapters: len(chapters),
		Metadata: Metadata{
			GeneratedAt: generatedAt,
			Config:      opts,
			Version:     Version,
			Algorithm:   Algorithm,
		},
	}
	for _, ch := range chapters {
		book.TotalPages += ch.PageCount
		book.TotalWords += ch.TotalWordCount
	}
	book.TotalParagraphs = len(paragraphs)
	book.EstimatedReadingTime = estimateMinutes(book.TotalWords, opts.WordsPerMinute)
	if book.TotalWords == 0 {
		book.EstimatedReadingTime = 0
	}
	return book
}

// validate enforces the structural invariants on a freshly built book:
// no paragraph lost, duplicated or reordered; page bounds honored; chapter
// ranges contiguous and gapless.
func validate(book *PagedBook, inputParagraphs int, opts Options) error {
	fail := func(format string, args ...any) error {
		return &ValidationError{BookID: book.BookID, Reason: fmt.Sprintf(format, args...)}
	}

	var flat []*Page
	got := 0
	for i := range book.Chapters {
		ch := &book.Chapters[i]
		for j := range ch.Pages {
			got += len(ch.Pages[j].Paragraphs)
			flat = append(flat, &ch.Pages[j])
		}
	}
	if got != inputParagraphs {
		return fail("paragraph count mismatch: %d in, %d out", inputParagraphs, got)
	}
	if len(flat) != book.TotalPages {
		return fail("page count mismatch: counted %d, recorded %d", len(flat), book.TotalPages)
	}

	bounds := opts.ParagraphsPerPage
	for i, page := range flat {
		n := len(page.Paragraphs)
		if n == 0 {
			return fail("chapter %d page %d is empty", page.ChapterIndex, page.Index)
		}
		if n > bounds.Max {
			return fail("chapter %d page %d holds %d paragraphs, cap is %d", page.ChapterIndex, page.Index, n, bounds.Max)
		}
		// Undersized pages are legal in three places: the trailing page (it
		// takes whatever remains), a page cut short because the next one
		// opens with a title or image, and the single-page degenerate case.
		if n < bounds.Min && i < len(flat)-1 && len(flat[i+1].Paragraphs) > 0 {
			next := flat[i+1].Paragraphs[0].Type
			if next != ParagraphTypeTitle && next != ParagraphTypeImage {
				return fail("chapter %d page %d holds %d paragraphs, minimum is %d", page.ChapterIndex, page.Index, n, bounds.Min)
			}
		}
	}

	for i, ch := range book.Chapters {
		if ch.EndPageIndex-ch.StartPageIndex+1 != ch.PageCount {
			return fail("chapter %d page range [%d, %d] disagrees with page count %d", ch.Index, ch.StartPageIndex, ch.EndPageIndex, ch.PageCount)
		}
		if i > 0 && book.Chapters[i-1].EndPageIndex+1 != ch.StartPageIndex {
			return fail("gap between chapter %d and %d", i-1, i)
		}
	}
	if n := len(book.Chapters); n > 0 && book.Chapters[n-1].EndPageIndex != book.TotalPages-1 {
		return fail("last chapter ends at %d, book has %d pages", book.Chapters[n-1].EndPageIndex, book.TotalPages)
	}

	return nil
}
