package fee

import (
	"iter"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/model"
)

const (
	DefaultPerDayRate = 0.50
	day               = 24 * time.Hour
)

type PlanLookup interface {
	Plan(name string) (model.MembershipPlan, error)
}

// Source is what the overdue report reads: every checked-out book and
// the patrons holding them.
type Source interface {
	CheckedOut() []model.Book
	FindPatron(id string) (model.Patron, error)
}

type Calculator struct {
	perDayRate float64
	plans      PlanLookup
	log        *zap.Logger
}

type Option func(*Calculator)

func WithPerDayRate(rate float64) Option {
	return func(c *Calculator) {
		if rate >= 0 {
			c.perDayRate = rate
		}
	}
}

func NewCalculator(plans PlanLookup, log *zap.Logger, opts ...Option) *Calculator {
	c := &Calculator{
		perDayRate: DefaultPerDayRate,
		plans:      plans,
		log:        log.Named("fee"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) PerDayRate() float64 {
	return c.perDayRate
}

// OverdueDays counts whole days elapsed past due. Zero when now is not
// after due.
func OverdueDays(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / day)
}

// FeeFor is the overdue fee of the book at now, net of the patron's plan
// discount. Full precision is kept; use Format for display.
func (c *Calculator) FeeFor(book model.Book, patron model.Patron, now time.Time) (float64, error) {
	if book.State != model.StateCheckedOut || book.DueDate == nil {
		return 0, nil
	}
	days := OverdueDays(*book.DueDate, now)
	if days == 0 {
		return 0, nil
	}
	plan, err := c.plans.Plan(patron.Plan)
	if err != nil {
		return 0, err
	}
	return c.amount(days, plan.DiscountRate), nil
}

func (c *Calculator) amount(days int, discount float64) float64 {
	discount = math.Min(math.Max(discount, 0), 1)
	return float64(days) * c.perDayRate * (1 - discount)
}

// Quote is FeeFor packaged with the overdue day count and display amount.
func (c *Calculator) Quote(book model.Book, patron model.Patron, now time.Time) (model.FeeQuote, error) {
	q := model.FeeQuote{BookID: book.ID, PatronID: book.Holder}
	amount, err := c.FeeFor(book, patron, now)
	if err != nil {
		return model.FeeQuote{}, err
	}
	if amount > 0 {
		q.OverdueDays = OverdueDays(*book.DueDate, now)
	}
	q.Fee = amount
	q.Display = Format(amount)
	return q, nil
}

// Report yields every checked-out book with a positive fee, highest fee
// first and book id as tie-break. Nothing is computed until the sequence
// is ranged over.
func (c *Calculator) Report(src Source, now time.Time) iter.Seq[model.OverdueItem] {
	return func(yield func(model.OverdueItem) bool) {
		var items []model.OverdueItem
		for _, b := range src.CheckedOut() {
			patron, err := src.FindPatron(b.Holder)
			if err != nil {
				c.log.Warn("overdue report: holder lookup", zap.String("bookID", b.ID), zap.Error(err))
				continue
			}
			amount, err := c.FeeFor(b, patron, now)
			if err != nil {
				c.log.Warn("overdue report: fee", zap.String("bookID", b.ID), zap.Error(err))
				continue
			}
			if amount <= 0 {
				continue
			}
			items = append(items, model.OverdueItem{
				Book:        b,
				Patron:      patron,
				OverdueDays: OverdueDays(*b.DueDate, now),
				Fee:         amount,
				Display:     Format(amount),
			})
		}
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Fee != items[j].Fee {
				return items[i].Fee > items[j].Fee
			}
			return items[i].Book.ID < items[j].Book.ID
		})
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}

// Format rounds to cents for presentation, e.g. "$1.20".
func Format(amount float64) string {
	return "$" + decimal.NewFromFloat(amount).Round(2).StringFixed(2)
}
