package pagination

import "time"

type ParagraphType string

const (
	ParagraphTypeRegular ParagraphType = "regular"
	ParagraphTypeTitle   ParagraphType = "title"
	ParagraphTypeImage   ParagraphType = "image"
	ParagraphTypeFact    ParagraphType = "fact"
	ParagraphTypeList    ParagraphType = "list"
)

// Paragraph is the atomic content unit produced by an external book parser.
// Either Text or Markup must be present; WordCount is recomputed during
// preprocessing if the parser did not supply it.
type Paragraph struct {
	Text      string        `json:"text,omitempty"`
	Markup    string        `json:"markup,omitempty"`
	Type      ParagraphType `json:"type"`
	Title     string        `json:"title,omitempty"`
	WordCount int           `json:"word_count,omitempty"`
}

// Page is a bounded run of consecutive paragraphs representing one reading
// screen. Pages are value objects: once built they are never mutated.
type Page struct {
	ID               string      `json:"id"`
	Index            int         `json:"index"` // 0-based within the owning chapter
	Paragraphs       []Paragraph `json:"paragraphs"`
	WordCount        int         `json:"word_count"`
	EstimatedMinutes int         `json:"estimated_minutes"`
	ChapterIndex     int         `json:"chapter_index"`
	GlobalPageIndex  int         `json:"global_page_index"`
}

// Chapter is a fixed-size window of consecutive pages; only the final
// chapter of a book may be partial.
type Chapter struct {
	ID               string `json:"id"`
	Index            int    `json:"index"`
	Title            string `json:"title"`
	Pages            []Page `json:"pages"`
	TotalWordCount   int    `json:"total_word_count"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	StartPageIndex   int    `json:"start_page_index"`
	EndPageIndex     int    `json:"end_page_index"`
	PageCount        int    `json:"page_count"`
	IsPartial        bool   `json:"is_partial"`
}

// PagedBook is the complete pagination result for one book under one
// configuration, the sole artifact handed to the renderer and navigator.
type PagedBook struct {
	BookID               string    `json:"book_id"`
	Chapters             []Chapter `json:"chapters"`
	TotalPages           int       `json:"total_pages"`
	TotalChapters        int       `json:"total_chapters"`
	TotalParagraphs      int       `json:"total_paragraphs"`
	TotalWords           int       `json:"total_words"`
	EstimatedReadingTime int       `json:"estimated_reading_time"` // minutes
	Metadata             Metadata  `json:"metadata"`
}

// Metadata describes how and when a PagedBook was generated.
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	Config      Options   `json:"config"`
	Version     string    `json:"version"`
	Algorithm   string    `json:"algorithm"`
}

// Page returns the page at the given chapter/local-page coordinates, or nil
// if either index is out of range.
func (b *PagedBook) Page(chapter, page int) *Page {
	if chapter < 0 || chapter >= len(b.Chapters) {
		return nil
	}
	ch := &b.Chapters[chapter]
	if page < 0 || page >= len(ch.Pages) {
		return nil
	}
	return &ch.Pages[page]
}
