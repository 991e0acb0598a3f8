package navigator

import (
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leafread/leafread/internal/pagination"
)

// DefaultDebounce is how long routine position writes are coalesced before
// reaching the history. Explicit jumps bypass it.
const DefaultDebounce = 300 * time.Millisecond

// History is the address bar plus browser history seen by the navigator.
// Replace uses replace semantics: repeated in-book navigation collapses
// into a single entry, with the structured position attached so the entry
// can be replayed on back/forward.
type History interface {
	Location() *url.URL
	Replace(u *url.URL, state Position) error
}

// Navigator owns the bidirectional sync between navigation state and the
// history. It holds exactly one debounce timer: every UpdatePosition call
// resets that single timer, so only the final state within a debounce
// window is ever flushed.
type Navigator struct {
	history  History
	debounce time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	timer    *time.Timer
	pending  *Position
	writing  bool // re-entrancy flag: a flush must not re-trigger the observer
	closed   bool
}

func New(history History, debounce time.Duration, log *zap.Logger) *Navigator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Navigator{history: history, debounce: debounce, log: log}
}

// Current reads the position from the history's present location.
func (n *Navigator) Current() Position {
	return ParsePosition(n.history.Location())
}

// UpdatePosition schedules a history write for the given state. Routine
// updates are debounced; immediate ones (explicit jumps) flush at once and
// cancel any pending debounced write.
func (n *Navigator) UpdatePosition(p Position, immediate bool) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}

	if immediate {
		if n.timer != nil {
			n.timer.Stop()
			n.timer = nil
		}
		n.pending = nil
		n.mu.Unlock()
		n.flush(p)
		return
	}

	n.pending = &p
	if n.timer == nil {
		n.timer = time.AfterFunc(n.debounce, n.flushPending)
	} else {
		n.timer.Reset(n.debounce)
	}
	n.mu.Unlock()
}

func (n *Navigator) flushPending() {
	n.mu.Lock()
	p := n.pending
	n.pending = nil
	n.timer = nil
	closed := n.closed
	n.mu.Unlock()

	if closed || p == nil {
		return
	}
	n.flush(*p)
}

func (n *Navigator) flush(p Position) {
	n.mu.Lock()
	n.writing = true
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		n.writing = false
		n.mu.Unlock()
	}()

	target := p.Apply(n.history.Location())
	if err := n.history.Replace(target, p); err != nil {
		// Sync failures are local: the reader keeps reading, the address is
		// just momentarily stale.
		n.log.Warn("position write failed",
			zap.String("book", p.BookID),
			zap.Int("chapter", p.Chapter),
			zap.Int("page", p.Page),
			zap.Error(err))
	}
}

// HandleLocationChange is the observer for external location changes. It
// reports false while one of our own writes is in flight, breaking the
// write -> observe -> write cycle.
func (n *Navigator) HandleLocationChange() (Position, bool) {
	n.mu.Lock()
	writing := n.writing
	n.mu.Unlock()
	if writing {
		return Position{}, false
	}
	return n.Current(), true
}

// Flush forces any pending debounced write out now.
func (n *Navigator) Flush() {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	p := n.pending
	n.pending = nil
	n.mu.Unlock()
	if p != nil {
		n.flush(*p)
	}
}

// Close cancels any pending write and stops the navigator for good.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.pending = nil
}

// NextPagePosition computes the position one page forward, rolling over into
// the next chapter at a chapter's last page. At the end of the book it stays
// put. Pure; nothing is written.
func NextPagePosition(p Position, book *pagination.PagedBook) Position {
	p = ValidateState(p, book)
	if book == nil || book.TotalChapters == 0 {
		return p
	}
	if p.Page+1 < book.Chapters[p.Chapter].PageCount {
		p.Page++
	} else if p.Chapter+1 < book.TotalChapters {
		p.Chapter++
		p.Page = 0
	}
	return p
}

// PrevPagePosition computes the position one page back, rolling over to the
// previous chapter's last page. At the start of the book it stays put.
func PrevPagePosition(p Position, book *pagination.PagedBook) Position {
	p = ValidateState(p, book)
	if book == nil || book.TotalChapters == 0 {
		return p
	}
	if p.Page > 0 {
		p.Page--
	} else if p.Chapter > 0 {
		p.Chapter--
		p.Page = book.Chapters[p.Chapter].PageCount - 1
	}
	return p
}

// NextPage advances one page and schedules the debounced write.
func (n *Navigator) NextPage(p Position, book *pagination.PagedBook) Position {
	p = NextPagePosition(p, book)
	n.UpdatePosition(p, false)
	return p
}

// PrevPage steps one page back and schedules the debounced write.
func (n *Navigator) PrevPage(p Position, book *pagination.PagedBook) Position {
	p = PrevPagePosition(p, book)
	n.UpdatePosition(p, false)
	return p
}

// NextChapter jumps to the first page of the following chapter.
func (n *Navigator) NextChapter(p Position, book *pagination.PagedBook) Position {
	p = ValidateState(p, book)
	if book != nil && p.Chapter+1 < book.TotalChapters {
		p.Chapter++
	}
	p.Page = 0
	n.UpdatePosition(p, false)
	return p
}

// PrevChapter jumps to the first page of the preceding chapter.
func (n *Navigator) PrevChapter(p Position, book *pagination.PagedBook) Position {
	p = ValidateState(p, book)
	if p.Chapter > 0 {
		p.Chapter--
	}
	p.Page = 0
	n.UpdatePosition(p, false)
	return p
}

// JumpToGlobalPage moves to a book-wide page index. Out-of-range indexes
// are reported as an error, never silently clamped. The write is always
// immediate: a jump is an explicit action, not a page flip to coalesce.
func (n *Navigator) JumpToGlobalPage(p Position, book *pagination.PagedBook, globalIndex int) (Position, error) {
	chapter, local, err := pagination.FindChapterForGlobalIndex(book, globalIndex)
	if err != nil {
		return p, err
	}
	p.Chapter = chapter.Index
	p.Page = local
	n.UpdatePosition(p, true)
	return p, nil
}
