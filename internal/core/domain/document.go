package domain

import (
	"path"
	"strings"
	"time"
)

// Document is the persisted form of a successfully ingested file.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	WordCount int       `json:"word_count"`
	Embedded  bool      `json:"embedded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CountWords counts whitespace-separated runs, which matches how the word
// count is surfaced in document listings.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// TitleFromFilename derives a display title from an uploaded filename.
func TitleFromFilename(filename string) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = path.Base(name)
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "Untitled"
	}
	return name
}
