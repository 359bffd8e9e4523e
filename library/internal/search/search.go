package search

import (
	"strings"

	"github.com/Astemirdum/library-lending/library/internal/model"
)

type Catalog interface {
	Books() []model.Book
}

// Query matches case-insensitive substrings of title, author and genre and
// the exact ISBN. Empty fields match everything.
type Query struct {
	Title  string `query:"title"`
	Author string `query:"author"`
	ISBN   string `query:"isbn"`
	Genre  string `query:"genre"`
}

func (q Query) IsZero() bool {
	return q == Query{}
}

func (q Query) Match(b model.Book) bool {
	if q.Title != "" && !contains(b.Title, q.Title) {
		return false
	}
	if q.Author != "" && !contains(b.Author, q.Author) {
		return false
	}
	if q.ISBN != "" && b.ISBN != q.ISBN {
		return false
	}
	if q.Genre != "" && (b.Genre == "" || !contains(b.Genre, q.Genre)) {
		return false
	}
	return true
}

type Searcher struct {
	catalog Catalog
}

func New(catalog Catalog) *Searcher {
	return &Searcher{catalog: catalog}
}

func (s *Searcher) Find(q Query) []model.Book {
	books := s.catalog.Books()
	if q.IsZero() {
		return books
	}
	out := make([]model.Book, 0, len(books))
	for _, b := range books {
		if q.Match(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s *Searcher) ByTitle(title string) []model.Book { return s.Find(Query{Title: title}) }

func (s *Searcher) ByAuthor(author string) []model.Book { return s.Find(Query{Author: author}) }

func (s *Searcher) ByISBN(isbn string) []model.Book { return s.Find(Query{ISBN: isbn}) }

func (s *Searcher) ByGenre(genre string) []model.Book { return s.Find(Query{Genre: genre}) }

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
