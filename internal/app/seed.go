package app

import (
	"fmt"

	"bookreader/pkg/domain"
)

// SeedSampleData inserts a sample book with three pages so a fresh
// deployment has something to browse. Safe to run more than once; each run
// adds a new book.
func (a *App) SeedSampleData() (domain.Book, error) {
	book, err := a.CreateBook(domain.Claims{}, BookInput{
		Title:  "Sample Book",
		Author: "Author Name",
	})
	if err != nil {
		return domain.Book{}, err
	}
	for i := 1; i <= 3; i++ {
		_, err := a.AddPage(book.ID, PageInput{
			Title:   fmt.Sprintf("Page %d", i),
			Content: fmt.Sprintf("Content of page %d", i),
		})
		if err != nil {
			return domain.Book{}, err
		}
	}
	return book, nil
}
