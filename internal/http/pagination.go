package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leafread/leafread/internal/database"
	"github.com/leafread/leafread/internal/pagination"
)

type PaginationController struct {
	db   *database.Database
	svc  *pagination.Service
	opts pagination.Options
}

func NewPaginationController(db *database.Database, svc *pagination.Service, opts pagination.Options) *PaginationController {
	return &PaginationController{db: db, svc: svc, opts: opts}
}

// GetBookPages handles GET /api/books/:bookId/pages, returning the full
// PagedBook for a registered book. `nocache=1` bypasses the result cache.
func (controller *PaginationController) GetBookPages(c *gin.Context) {
	bookID := c.Param("bookId")

	paragraphs, err := controller.db.GetBookParagraphs(bookID)
	if errors.Is(err, database.ErrBookNotFound) {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	opts := controller.optionsFromQuery(c)
	if err := opts.Validate(); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := controller.svc.Paginate(paragraphs, bookID, opts)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, book)
}

// optionsFromQuery starts from the configured options and applies per-request
// query overrides. Invalid values are ignored rather than rejected; the
// pipeline validates the combined result.
func (controller *PaginationController) optionsFromQuery(c *gin.Context) pagination.Options {
	opts := controller.opts
	opts.BypassCache = c.Query("nocache") == "1"

	override := func(name string, target *int) {
		raw := c.Query(name)
		if raw == "" {
			return
		}
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			*target = n
		}
	}
	override("min", &opts.ParagraphsPerPage.Min)
	override("max", &opts.ParagraphsPerPage.Max)
	override("preferred", &opts.ParagraphsPerPage.Preferred)
	override("words", &opts.WordsPerPage)
	override("chapter", &opts.PagesPerChapter)
	return opts
}

type paginateRequest struct {
	BookID     string                 `json:"book_id" binding:"required"`
	Paragraphs []pagination.Paragraph `json:"paragraphs"`
	Options    *pagination.Options    `json:"options"`
}

// Paginate handles POST /api/paginate: one-shot pagination of an inline
// paragraph list, optionally with caller-supplied options.
func (controller *PaginationController) Paginate(c *gin.Context) {
	var req paginateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := controller.opts
	if req.Options != nil {
		opts = *req.Options
	}

	book, err := controller.svc.Paginate(req.Paragraphs, req.BookID, opts)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var pages []pagination.Page
	for _, ch := range book.Chapters {
		pages = append(pages, ch.Pages...)
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"book":  book,
		"stats": pagination.ComputeStats(pages),
	})
}
