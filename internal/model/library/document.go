package library

import (
	"embed"
	"log"
)

//go:embed docs/*.md
var docsFS embed.FS

// Category groups prebuilt documents in the picker.
type Category string

const (
	Academic  Category = "academic"
	Business  Category = "business"
	Technical Category = "technical"
)

// Document is a built-in sample the user can study without uploading anything.
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Content     string   `json:"content,omitempty"`
}

// Seed returns the prebuilt documents with their markdown bodies loaded.
func Seed() []Document {
	catalog := []Document{
		{
			ID:          "jesc102",
			Title:       "JESC102 - Introduction to Electronics",
			Description: "Course materials for JESC102 covering fundamental electronics concepts.",
			Category:    Academic,
		},
		{
			ID:          "custom1",
			Title:       "Custom Document Example",
			Description: "This is an example of a manually added document.",
			Category:    Academic,
		},
		{
			ID:          "doc1",
			Title:       "Introduction to Machine Learning",
			Description: "A beginner-friendly guide to machine learning concepts and applications.",
			Category:    Academic,
		},
		{
			ID:          "doc2",
			Title:       "Business Plan Template",
			Description: "A comprehensive business plan template for startups and small businesses.",
			Category:    Business,
		},
		{
			ID:          "doc3",
			Title:       "Web Development Guide",
			Description: "A comprehensive guide to modern web development practices and technologies.",
			Category:    Technical,
		},
	}

	for i := range catalog {
		body, err := docsFS.ReadFile("docs/" + catalog[i].ID + ".md")
		if err != nil {
			log.Printf("[library] missing body for %s: %v", catalog[i].ID, err)
			continue
		}
		catalog[i].Content = string(body)
	}
	return catalog
}
