package models

import (
	"strings"
	"time"
)

type ReferenceType string

const (
	ReferenceBook    ReferenceType = "book"
	ReferenceArticle ReferenceType = "article"
	ReferenceWebsite ReferenceType = "website"
	ReferenceOther   ReferenceType = "other"
)

func (t ReferenceType) Valid() bool {
	switch t {
	case ReferenceBook, ReferenceArticle, ReferenceWebsite, ReferenceOther:
		return true
	}
	return false
}

// Reference is a bibliographic entry.
type Reference struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	Author    string        `json:"author"`
	Year      int           `json:"year"`
	Type      ReferenceType `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type ReferenceInput struct {
	Title  string        `json:"title"`
	Author string        `json:"author"`
	Year   int           `json:"year"`
	Type   ReferenceType `json:"type"`
}

func (in ReferenceInput) Validate() error {
	fe := FieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		fe.Add("title", "required")
	}
	if strings.TrimSpace(in.Author) == "" {
		fe.Add("author", "required")
	}
	if in.Year <= 0 {
		fe.Add("year", "must be positive")
	}
	if !in.Type.Valid() {
		fe.Add("type", "must be one of book, article, website, other")
	}
	return fe.Err()
}

// ReferencePatch is a partial update; nil fields are not sent.
type ReferencePatch struct {
	Title  *string        `json:"title,omitempty"`
	Author *string        `json:"author,omitempty"`
	Year   *int           `json:"year,omitempty"`
	Type   *ReferenceType `json:"type,omitempty"`
}

func (p ReferencePatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Year == nil && p.Type == nil
}

// Apply returns r with the patch applied.
func (p ReferencePatch) Apply(r Reference) Reference {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Author != nil {
		r.Author = *p.Author
	}
	if p.Year != nil {
		r.Year = *p.Year
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	return r
}
