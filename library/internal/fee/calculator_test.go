package fee_test

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/fee"
	"github.com/Astemirdum/library-lending/library/internal/membership"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

var now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func newCalculator(t *testing.T, opts ...fee.Option) *fee.Calculator {
	t.Helper()
	plans, err := membership.NewRegistry(zap.NewNop(),
		model.MembershipPlan{Name: "basic", CheckoutLimit: 3},
		model.MembershipPlan{Name: "premium", CheckoutLimit: 10, DiscountRate: 0.2},
	)
	require.NoError(t, err)
	return fee.NewCalculator(plans, zap.NewNop(), opts...)
}

func checkedOut(id, holder string, due time.Time) model.Book {
	b := model.NewBook(id, "title "+id, "author", "isbn")
	b.State = model.StateCheckedOut
	b.DueDate = &due
	b.Holder = holder
	return b
}

func TestOverdueDays(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		due  time.Time
		want int
	}{
		{name: "due in the future", due: now.Add(time.Hour), want: 0},
		{name: "due now", due: now, want: 0},
		{name: "less than a day", due: now.Add(-23 * time.Hour), want: 0},
		{name: "exactly one day", due: now.Add(-24 * time.Hour), want: 1},
		{name: "floors partial days", due: now.Add(-71 * time.Hour), want: 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, fee.OverdueDays(tt.due, now))
		})
	}
}

func TestCalculator_FeeFor(t *testing.T) {
	t.Parallel()
	c := newCalculator(t)

	tests := []struct {
		name   string
		book   model.Book
		patron model.Patron
		want   float64
	}{
		{
			name:   "not checked out",
			book:   model.NewBook("001", "1984", "George Orwell", "9780451524935"),
			patron: model.Patron{ID: "p1", Plan: "basic"},
			want:   0,
		},
		{
			name:   "not yet due",
			book:   checkedOut("001", "p1", now.Add(24*time.Hour)),
			patron: model.Patron{ID: "p1", Plan: "basic"},
			want:   0,
		},
		{
			name:   "due exactly now",
			book:   checkedOut("001", "p1", now),
			patron: model.Patron{ID: "p1", Plan: "basic"},
			want:   0,
		},
		{
			name:   "three days no discount",
			book:   checkedOut("001", "p1", now.Add(-3*24*time.Hour)),
			patron: model.Patron{ID: "p1", Plan: "basic"},
			want:   1.5,
		},
		{
			name:   "three days twenty percent off",
			book:   checkedOut("001", "p1", now.Add(-3*24*time.Hour)),
			patron: model.Patron{ID: "p1", Plan: "premium"},
			want:   1.2,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := c.FeeFor(tt.book, tt.patron, now)
			require.NoError(t, err)
			require.InDelta(t, tt.want, got, 1e-9)
			require.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func TestCalculator_FeeForUnknownPlan(t *testing.T) {
	t.Parallel()
	c := newCalculator(t)

	_, err := c.FeeFor(checkedOut("001", "p1", now.Add(-48*time.Hour)), model.Patron{ID: "p1", Plan: "gold"}, now)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCalculator_FeeForMonotonic(t *testing.T) {
	t.Parallel()
	c := newCalculator(t)
	due := now.Add(-10 * 24 * time.Hour)
	book := checkedOut("001", "p1", due)
	patron := model.Patron{ID: "p1", Plan: "premium"}

	prev := -1.0
	for at := due.Add(-48 * time.Hour); at.Before(now); at = at.Add(5 * time.Hour) {
		got, err := c.FeeFor(book, patron, at)
		require.NoError(t, err)
		if !at.After(due) {
			require.Zero(t, got)
		}
		require.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestCalculator_PerDayRate(t *testing.T) {
	t.Parallel()
	c := newCalculator(t, fee.WithPerDayRate(1.25))
	require.Equal(t, 1.25, c.PerDayRate())

	got, err := c.FeeFor(checkedOut("001", "p1", now.Add(-2*24*time.Hour)), model.Patron{ID: "p1", Plan: "basic"}, now)
	require.NoError(t, err)
	require.InDelta(t, 2.5, got, 1e-9)

	require.Equal(t, fee.DefaultPerDayRate, newCalculator(t, fee.WithPerDayRate(-1)).PerDayRate())
}

func TestCalculator_Quote(t *testing.T) {
	t.Parallel()
	c := newCalculator(t)

	q, err := c.Quote(checkedOut("001", "p1", now.Add(-3*24*time.Hour)), model.Patron{ID: "p1", Plan: "premium"}, now)
	require.NoError(t, err)
	require.Equal(t, "001", q.BookID)
	require.Equal(t, "p1", q.PatronID)
	require.Equal(t, 3, q.OverdueDays)
	require.InDelta(t, 1.2, q.Fee, 1e-9)
	require.Equal(t, "$1.20", q.Display)

	q, err = c.Quote(model.NewBook("002", "t", "a", "i"), model.Patron{}, now)
	require.NoError(t, err)
	require.Zero(t, q.OverdueDays)
	require.Equal(t, "$0.00", q.Display)
}

type source struct {
	books   []model.Book
	patrons map[string]model.Patron
}

func (s source) CheckedOut() []model.Book { return s.books }

func (s source) FindPatron(id string) (model.Patron, error) {
	p, ok := s.patrons[id]
	if !ok {
		return model.Patron{}, errs.ErrNotFound
	}
	return p, nil
}

func TestCalculator_Report(t *testing.T) {
	t.Parallel()
	c := newCalculator(t)

	src := source{
		books: []model.Book{
			checkedOut("001", "p1", now.Add(-2*24*time.Hour)), // 1.00
			checkedOut("002", "p2", now.Add(24*time.Hour)),    // not due
			checkedOut("003", "p1", now.Add(-5*24*time.Hour)), // 2.50
			checkedOut("004", "p1", now.Add(-2*24*time.Hour)), // 1.00, ties with 001
			checkedOut("005", "ghost", now.Add(-9*24*time.Hour)),
			checkedOut("006", "p2", now.Add(-5*24*time.Hour)), // 2.00 with discount
		},
		patrons: map[string]model.Patron{
			"p1": {ID: "p1", Plan: "basic"},
			"p2": {ID: "p2", Plan: "premium"},
		},
	}

	var ids []string
	for item := range c.Report(src, now) {
		require.Greater(t, item.Fee, 0.0)
		ids = append(ids, item.Book.ID)
	}
	require.Equal(t, []string{"003", "006", "001", "004"}, ids)

	first := slices.Collect(c.Report(src, now))[0]
	require.Equal(t, 5, first.OverdueDays)
	require.Equal(t, "$2.50", first.Display)
	require.Equal(t, "p1", first.Patron.ID)
}

func TestCalculator_ReportStopsEarly(t *testing.T) {
	t.Parallel()
	c := newCalculator(t)
	src := source{
		books: []model.Book{
			checkedOut("001", "p1", now.Add(-2*24*time.Hour)),
			checkedOut("002", "p1", now.Add(-3*24*time.Hour)),
		},
		patrons: map[string]model.Patron{"p1": {ID: "p1", Plan: "basic"}},
	}

	n := 0
	for range c.Report(src, now) {
		n++
		break
	}
	require.Equal(t, 1, n)
}

func TestFormat(t *testing.T) {
	t.Parallel()
	require.Equal(t, "$1.20", fee.Format(3*0.5*0.8))
	require.Equal(t, "$0.00", fee.Format(0))
	require.Equal(t, "$10.13", fee.Format(10.125))
	require.Equal(t, "$7.00", fee.Format(7))
}
