package pagination

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrPageOutOfRange is returned by FindChapterForGlobalIndex for indexes
// outside [0, totalPages). Out-of-range lookups are reported, never clamped:
// clamping here would silently misreport reading position to the caller.
var ErrPageOutOfRange = fmt.Errorf("global page index out of range")

// BuildChapters groups an ordered page list into fixed windows of
// opts.PagesPerChapter; only the final window may be partial. Pages are
// stamped with their chapter index, a chapter-local index, and their
// book-wide global index.
func BuildChapters(pages []Page, opts Options) []Chapter {
	opts = opts.withDefaults()
	size := opts.PagesPerChapter

	var chapters []Chapter
	for start := 0; start < len(pages); start += size {
		end := start + size
		if end > len(pages) {
			end = len(pages)
		}

		index := len(chapters)
		window := make([]Page, end-start)
		copy(window, pages[start:end])

		words := 0
		minutes := 0
		for i := range window {
			window[i].ChapterIndex = index
			window[i].GlobalPageIndex = start + i
			window[i].Index = i
			words += window[i].WordCount
			minutes += window[i].EstimatedMinutes
		}

		chapters = append(chapters, Chapter{
			ID:               uuid.NewString(),
			Index:            index,
			Title:            chapterTitle(window, index),
			Pages:            window,
			TotalWordCount:   words,
			EstimatedMinutes: minutes,
			StartPageIndex:   start,
			EndPageIndex:     end - 1,
			PageCount:        len(window),
			IsPartial:        len(window) < size,
		})
	}
	return chapters
}

// chapterTitle derives a title from the first title-type paragraph found
// among the chapter's pages, scanning pages in order. Without one the
// chapter gets an ordinal label.
func chapterTitle(pages []Page, index int) string {
	for _, page := range pages {
		for _, p := range page.Paragraphs {
			if p.Type != ParagraphTypeTitle {
				continue
			}
			if t := strings.TrimSpace(p.Title); t != "" {
				return t
			}
			if t := strings.TrimSpace(p.Text); t != "" {
				return t
			}
		}
	}
	return fmt.Sprintf("Chapter %d", index+1)
}

// FindChapterForGlobalIndex resolves a book-wide page index to its owning
// chapter and the page's local offset within it.
func FindChapterForGlobalIndex(book *PagedBook, globalIndex int) (*Chapter, int, error) {
	if book == nil || globalIndex < 0 || globalIndex >= book.TotalPages {
		return nil, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrPageOutOfRange, globalIndex, totalPagesOf(book))
	}
	for i := range book.Chapters {
		ch := &book.Chapters[i]
		if globalIndex >= ch.StartPageIndex && globalIndex <= ch.EndPageIndex {
			return ch, globalIndex - ch.StartPageIndex, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %d not covered by any chapter", ErrPageOutOfRange, globalIndex)
}

func totalPagesOf(book *PagedBook) int {
	if book == nil {
		return 0
	}
	return book.TotalPages
}
