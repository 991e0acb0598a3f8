package entities

import (
	"time"
)

// Book is a registered content item. Paragraphs arrive from an external
// parser and are stored verbatim as JSON; the pagination pipeline is the
// only consumer of their structure.
type Book struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Slug       string    `gorm:"uniqueIndex;size:256" json:"slug"`
	Title      string    `gorm:"index;size:512" json:"title"`
	Author     string    `gorm:"size:256" json:"author,omitempty"`
	Paragraphs string    `gorm:"type:text" json:"-"` // JSON-encoded paragraph list
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReadingPosition is the durably persisted navigation state for one book:
// one row per book, replaced in place so repeated in-book navigation never
// piles up history rows.
type ReadingPosition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookSlug  string    `gorm:"uniqueIndex;size:256" json:"book_slug"`
	Chapter   int       `json:"chapter"`
	Page      int       `json:"page"`
	UpdatedAt time.Time `json:"updated_at"`
}
