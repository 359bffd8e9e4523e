package search_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/search"
)

type catalog []model.Book

func (c catalog) Books() []model.Book { return c }

func ids(books []model.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.ID)
	}
	return out
}

func TestSearcher(t *testing.T) {
	t.Parallel()
	s := search.New(catalog{
		model.NewBook("001", "1984", "George Orwell", "9780451524935").WithGenre("Dystopian"),
		model.NewBook("002", "To Kill a Mockingbird", "Harper Lee", "9780060935467"),
		model.NewBook("003", "Animal Farm", "George Orwell", "9780451526342").WithGenre("Political satire"),
	})

	tests := []struct {
		name  string
		query search.Query
		want  []string
	}{
		{name: "empty query lists everything", query: search.Query{}, want: []string{"001", "002", "003"}},
		{name: "title is case-insensitive", query: search.Query{Title: "mOcKiNg"}, want: []string{"002"}},
		{name: "author substring", query: search.Query{Author: "orwell"}, want: []string{"001", "003"}},
		{name: "isbn is exact", query: search.Query{ISBN: "9780451524935"}, want: []string{"001"}},
		{name: "isbn prefix does not match", query: search.Query{ISBN: "978045"}, want: []string{}},
		{name: "genre skips books without genre", query: search.Query{Genre: "i"}, want: []string{"001", "003"}},
		{name: "combined", query: search.Query{Author: "orwell", Title: "farm"}, want: []string{"003"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ids(s.Find(tt.query)))
		})
	}

	require.Equal(t, []string{"001"}, ids(s.ByTitle("1984")))
	require.Equal(t, []string{"002"}, ids(s.ByAuthor("lee")))
	require.Equal(t, []string{"003"}, ids(s.ByISBN("9780451526342")))
	require.Equal(t, []string{"001"}, ids(s.ByGenre("dysto")))
}
