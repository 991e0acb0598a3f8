package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/leafread/leafread/internal/pagination"
)

// ParagraphSource loads the stored paragraph list for a book.
type ParagraphSource interface {
	GetBookParagraphs(bookSlug string) ([]pagination.Paragraph, error)
}

// PregenerateTask paginates one book in the background so the result cache
// is warm before the first read.
type PregenerateTask struct {
	BookSlug string `json:"book_slug"`
}

func (t PregenerateTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "pregenerate_pagination",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     1 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PregenerateProcessor runs the pagination pipeline for the queued book.
// The pipeline stores its own result in the cache; the task only triggers
// the computation.
func PregenerateProcessor(source ParagraphSource, svc *pagination.Service, opts pagination.Options, log *zap.Logger) backlite.QueueProcessor[PregenerateTask] {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, task PregenerateTask) error {
		paragraphs, err := source.GetBookParagraphs(task.BookSlug)
		if err != nil {
			return fmt.Errorf("load paragraphs of %q: %w", task.BookSlug, err)
		}

		book, err := svc.Paginate(paragraphs, task.BookSlug, opts)
		if err != nil {
			return fmt.Errorf("pregenerate pagination of %q: %w", task.BookSlug, err)
		}

		log.Info("pregenerated pagination",
			zap.String("book", task.BookSlug),
			zap.Int("pages", book.TotalPages),
			zap.Int("chapters", book.TotalChapters))
		return nil
	}
}

func NewPregenerateQueue(source ParagraphSource, svc *pagination.Service, opts pagination.Options, log *zap.Logger) backlite.Queue {
	return backlite.NewQueue(PregenerateProcessor(source, svc, opts, log))
}
