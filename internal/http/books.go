package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leafread/leafread/internal/database"
	"github.com/leafread/leafread/internal/pagination"
)

// TaskEnqueuer schedules background work after a book is registered.
type TaskEnqueuer interface {
	EnqueuePregenerate(bookSlug string) error
}

type BooksController struct {
	db    *database.Database
	tasks TaskEnqueuer // nil when the task queue is disabled
}

func NewBooksController(db *database.Database, tasks TaskEnqueuer) *BooksController {
	return &BooksController{db: db, tasks: tasks}
}

type createBookRequest struct {
	Slug       string                 `json:"slug"`
	Title      string                 `json:"title" binding:"required"`
	Author     string                 `json:"author"`
	Paragraphs []pagination.Paragraph `json:"paragraphs" binding:"required"`
}

// CreateBook handles POST /api/books: stores the parsed paragraph list and
// queues cache pregeneration so the first read is warm.
func (controller *BooksController) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := controller.db.CreateBook(req.Slug, req.Title, req.Author, req.Paragraphs)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if controller.tasks != nil {
		if err := controller.tasks.EnqueuePregenerate(book.Slug); err != nil {
			// Pregeneration is an optimization; registration already
			// succeeded.
			c.IndentedJSON(http.StatusCreated, gin.H{"book": book, "pregenerate": "failed: " + err.Error()})
			return
		}
	}

	c.IndentedJSON(http.StatusCreated, gin.H{"book": book})
}

func (controller *BooksController) GetAllBooks(c *gin.Context) {
	books, err := controller.db.GetAllBooks()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (controller *BooksController) GetBook(c *gin.Context) {
	book, err := controller.db.GetBookBySlug(c.Param("bookId"))
	if errors.Is(err, database.ErrBookNotFound) {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, book)
}
