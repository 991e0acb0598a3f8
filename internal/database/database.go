// Package database wraps the application's SQLite storage: registered
// books, persisted reading positions and the pagination cache table.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gosimple/slug"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/leafread/leafread/internal/entities"
	"github.com/leafread/leafread/internal/pagination"
)

// ErrBookNotFound is returned when a book slug resolves to nothing.
var ErrBookNotFound = errors.New("book not found")

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.ReadingPosition{},
		&entities.CacheRecord{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying connection for the session store.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

// CreateBook registers a book with its parsed paragraphs. The slug is
// derived from the title unless the caller supplies one.
func (d *Database) CreateBook(bookSlug, title, author string, paragraphs []pagination.Paragraph) (*entities.Book, error) {
	if bookSlug == "" {
		bookSlug = slug.Make(title)
	} else {
		bookSlug = slug.Make(bookSlug)
	}
	if bookSlug == "" {
		return nil, fmt.Errorf("book needs a title or an explicit id")
	}

	encoded, err := json.Marshal(paragraphs)
	if err != nil {
		return nil, fmt.Errorf("encode paragraphs: %w", err)
	}

	book := &entities.Book{
		Slug:       bookSlug,
		Title:      title,
		Author:     author,
		Paragraphs: string(encoded),
	}
	if err := d.DB.Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

func (d *Database) GetBookBySlug(bookSlug string) (*entities.Book, error) {
	var book entities.Book
	err := d.DB.Where("slug = ?", bookSlug).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (d *Database) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := d.DB.Order("title").Find(&books).Error
	return books, err
}

// GetBookParagraphs decodes the stored paragraph list for one book.
func (d *Database) GetBookParagraphs(bookSlug string) ([]pagination.Paragraph, error) {
	book, err := d.GetBookBySlug(bookSlug)
	if err != nil {
		return nil, err
	}
	var paragraphs []pagination.Paragraph
	if err := json.Unmarshal([]byte(book.Paragraphs), &paragraphs); err != nil {
		return nil, fmt.Errorf("decode paragraphs of %q: %w", bookSlug, err)
	}
	return paragraphs, nil
}

// SaveReadingPosition upserts the single persisted position row for a book.
func (d *Database) SaveReadingPosition(bookSlug string, chapter, page int) error {
	record := entities.ReadingPosition{
		BookSlug: bookSlug,
		Chapter:  chapter,
		Page:     page,
	}
	return d.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"chapter", "page", "updated_at"}),
	}).Create(&record).Error
}

func (d *Database) GetReadingPosition(bookSlug string) (*entities.ReadingPosition, error) {
	var record entities.ReadingPosition
	err := d.DB.Where("book_slug = ?", bookSlug).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
