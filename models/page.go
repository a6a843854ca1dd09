package models

import "time"

// Page holds editable site content such as the About, Contact and FAQ pages.
type Page struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Slug      string     `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	Title     string     `json:"title" gorm:"type:varchar(200);not null"`
	Content   string     `json:"content" gorm:"type:text"`
	Items     []PageItem `json:"items" gorm:"serializer:json;type:text"`
	UpdatedBy *uint      `json:"updated_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PageItem is a question/answer pair (FAQ) or a labelled value (contact details).
type PageItem struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (Page) TableName() string {
	return "pages"
}

var KnownPageSlugs = []string{"about", "contact", "faq"}

func IsKnownPageSlug(slug string) bool {
	for _, s := range KnownPageSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

type PageRequest struct {
	Title   string     `json:"title" binding:"required"`
	Content string     `json:"content"`
	Items   []PageItem `json:"items"`
}
