package http

import (
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leafread/leafread/internal/database"
	"github.com/leafread/leafread/internal/navigator"
	"github.com/leafread/leafread/internal/pagination"
)

// PositionStore persists confirmed reading positions.
type PositionStore interface {
	SaveReadingPosition(bookSlug string, chapter, page int) error
}

// positionHistory adapts the durable position store to the navigator's
// History contract. Replace semantics map to an upsert: one stored position
// per book, so rapid page flips never pile up rows.
type positionHistory struct {
	store PositionStore

	mu      sync.Mutex
	current *url.URL
}

func newPositionHistory(store PositionStore) *positionHistory {
	return &positionHistory{store: store, current: &url.URL{Path: "/read"}}
}

func (h *positionHistory) Location() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	u := *h.current
	return &u
}

func (h *positionHistory) Replace(u *url.URL, state navigator.Position) error {
	h.mu.Lock()
	h.current = u
	h.mu.Unlock()
	return h.store.SaveReadingPosition(state.BookID, state.Chapter, state.Page)
}

// ReaderController serves the reading surface: hydrating a position from
// the request URL, clamping it against the paginated book, and pushing
// confirmed positions through the navigator.
type ReaderController struct {
	db       *database.Database
	svc      *pagination.Service
	opts     pagination.Options
	sessions *SessionManager
	nav      *navigator.Navigator
	log      *zap.Logger
}

func NewReaderController(db *database.Database, svc *pagination.Service, opts pagination.Options, sessions *SessionManager, nav *navigator.Navigator, log *zap.Logger) *ReaderController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReaderController{db: db, svc: svc, opts: opts, sessions: sessions, nav: nav, log: log}
}

// readResponse is the payload handed to the (external) renderer. NextURL and
// PrevURL are absent at the book's edges.
type readResponse struct {
	Position     navigator.Position `json:"position"`
	GlobalIndex  int                `json:"global_index"`
	TotalPages   int                `json:"total_pages"`
	ChapterTitle string             `json:"chapter_title"`
	Page         *pagination.Page   `json:"page"`
	URL          string             `json:"url"`
	NextURL      string             `json:"next_url,omitempty"`
	PrevURL      string             `json:"prev_url,omitempty"`
}

// Read handles GET /read?bookId=&chapter=&page=. Invalid or missing
// chapter/page values parse to zero and are then clamped against the book;
// a request with no position at all restores the last confirmed one.
func (controller *ReaderController) Read(c *gin.Context) {
	pos := navigator.ParsePosition(c.Request.URL)
	if pos.BookID == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "bookId query parameter is required"})
		return
	}

	book, ok := controller.paginate(c, pos.BookID)
	if !ok {
		return
	}

	query := c.Request.URL.Query()
	if !query.Has(navigator.ParamChapter) && !query.Has(navigator.ParamPage) {
		pos = controller.restorePosition(c, pos.BookID)
	}

	pos = navigator.ValidateState(pos, book)
	controller.confirm(c, pos, false)

	c.IndentedJSON(http.StatusOK, controller.buildResponse(pos, book))
}

type positionRequest struct {
	BookID     string `json:"book_id" binding:"required"`
	Chapter    int    `json:"chapter"`
	Page       int    `json:"page"`
	Action     string `json:"action"`      // set, next_page, prev_page, next_chapter, prev_chapter, jump
	GlobalPage int    `json:"global_page"` // used by action=jump
}

// UpdatePosition handles POST /api/position: explicit navigation actions.
// Plain sets and jumps write through immediately; relative moves go through
// the debounced path like ordinary page flips.
func (controller *ReaderController) UpdatePosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, ok := controller.paginate(c, req.BookID)
	if !ok {
		return
	}

	pos := navigator.Position{BookID: req.BookID, Chapter: req.Chapter, Page: req.Page}

	switch req.Action {
	case "", "set":
		pos = navigator.ValidateState(pos, book)
		controller.confirm(c, pos, true)
	case "next_page":
		pos = controller.nav.NextPage(pos, book)
		controller.remember(c, pos)
	case "prev_page":
		pos = controller.nav.PrevPage(pos, book)
		controller.remember(c, pos)
	case "next_chapter":
		pos = controller.nav.NextChapter(pos, book)
		controller.remember(c, pos)
	case "prev_chapter":
		pos = controller.nav.PrevChapter(pos, book)
		controller.remember(c, pos)
	case "jump":
		var err error
		pos, err = controller.nav.JumpToGlobalPage(pos, book, req.GlobalPage)
		if err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		controller.remember(c, pos)
	default:
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + req.Action})
		return
	}

	c.IndentedJSON(http.StatusOK, controller.buildResponse(pos, book))
}

// paginate loads the book's paragraphs and runs the pipeline. Pipeline
// validation failures are fatal to the request: a structurally wrong book
// must never reach the navigator.
func (controller *ReaderController) paginate(c *gin.Context, bookID string) (*pagination.PagedBook, bool) {
	paragraphs, err := controller.db.GetBookParagraphs(bookID)
	if errors.Is(err, database.ErrBookNotFound) {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return nil, false
	}
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}

	book, err := controller.svc.Paginate(paragraphs, bookID, controller.opts)
	if err != nil {
		controller.log.Error("pagination failed", zap.String("book", bookID), zap.Error(err))
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return book, true
}

// restorePosition rebuilds the position from the session's history state,
// falling back to the durable store, then to the book start.
func (controller *ReaderController) restorePosition(c *gin.Context, bookID string) navigator.Position {
	if controller.sessions != nil {
		if pos, ok := controller.sessions.RestorePosition(c, bookID); ok {
			return pos
		}
	}
	if stored, err := controller.db.GetReadingPosition(bookID); err == nil {
		return navigator.Position{BookID: bookID, Chapter: stored.Chapter, Page: stored.Page}
	}
	return navigator.Position{BookID: bookID}
}

func (controller *ReaderController) confirm(c *gin.Context, pos navigator.Position, immediate bool) {
	controller.nav.UpdatePosition(pos, immediate)
	controller.remember(c, pos)
}

func (controller *ReaderController) remember(c *gin.Context, pos navigator.Position) {
	if controller.sessions != nil {
		controller.sessions.RememberPosition(c, pos)
	}
}

func (controller *ReaderController) buildResponse(pos navigator.Position, book *pagination.PagedBook) readResponse {
	readURL := func(p navigator.Position) string {
		return p.Apply(&url.URL{Path: "/read"}).String()
	}

	resp := readResponse{
		Position:    pos,
		GlobalIndex: navigator.GlobalIndex(pos, book),
		TotalPages:  book.TotalPages,
		URL:         readURL(pos),
	}
	if pos.Chapter >= 0 && pos.Chapter < book.TotalChapters {
		resp.ChapterTitle = book.Chapters[pos.Chapter].Title
	}
	resp.Page = book.Page(pos.Chapter, pos.Page)

	if next := navigator.NextPagePosition(pos, book); next != pos {
		resp.NextURL = readURL(next)
	}
	if prev := navigator.PrevPagePosition(pos, book); prev != pos {
		resp.PrevURL = readURL(prev)
	}
	return resp
}
