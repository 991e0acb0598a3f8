// Package navigator keeps the reading position synchronized with a
// URL-shaped address and a replayable history, and offers page/chapter
// navigation over a PagedBook.
package navigator

import (
	"net/url"
	"strconv"

	"github.com/leafread/leafread/internal/pagination"
)

// Query parameter names carried in the address.
const (
	ParamBookID  = "bookId"
	ParamChapter = "chapter"
	ParamPage    = "page"
)

// Position is the single externally visible navigation state.
type Position struct {
	BookID  string `json:"book_id"`
	Chapter int    `json:"chapter"`
	Page    int    `json:"page"`
}

// ParsePosition reads a position from a URL. Missing, unparsable or
// negative chapter/page values default to 0; this never fails.
func ParsePosition(u *url.URL) Position {
	if u == nil {
		return Position{}
	}
	q := u.Query()
	return Position{
		BookID:  q.Get(ParamBookID),
		Chapter: nonNegativeInt(q.Get(ParamChapter)),
		Page:    nonNegativeInt(q.Get(ParamPage)),
	}
}

func nonNegativeInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Apply writes the position into the URL's query, preserving unrelated
// parameters. A nil URL is treated as empty, mirroring ParsePosition.
func (p Position) Apply(u *url.URL) *url.URL {
	if u == nil {
		u = &url.URL{}
	}
	out := *u
	q := out.Query()
	q.Set(ParamBookID, p.BookID)
	q.Set(ParamChapter, strconv.Itoa(p.Chapter))
	q.Set(ParamPage, strconv.Itoa(p.Page))
	out.RawQuery = q.Encode()
	return &out
}

// ValidateState clamps an untrusted (chapter, page) pair into the book's
// valid range. Used whenever position is hydrated from outside the
// application: a typed URL or a restored history entry.
func ValidateState(p Position, book *pagination.PagedBook) Position {
	if book == nil || book.TotalChapters == 0 {
		p.Chapter = 0
		p.Page = 0
		return p
	}
	if p.Chapter >= book.TotalChapters {
		p.Chapter = book.TotalChapters - 1
	}
	if p.Chapter < 0 {
		p.Chapter = 0
	}
	pageCount := book.Chapters[p.Chapter].PageCount
	if p.Page >= pageCount {
		p.Page = pageCount - 1
	}
	if p.Page < 0 {
		p.Page = 0
	}
	return p
}

// GlobalIndex converts a validated position to its book-wide page index.
func GlobalIndex(p Position, book *pagination.PagedBook) int {
	if book == nil || p.Chapter < 0 || p.Chapter >= book.TotalChapters {
		return 0
	}
	return book.Chapters[p.Chapter].StartPageIndex + p.Page
}
