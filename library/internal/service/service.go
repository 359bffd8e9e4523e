package service

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/clock"
	"github.com/Astemirdum/library-lending/library/internal/fee"
	"github.com/Astemirdum/library-lending/library/internal/ledger"
	"github.com/Astemirdum/library-lending/library/internal/membership"
	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/repository"
	"github.com/Astemirdum/library-lending/library/internal/review"
	"github.com/Astemirdum/library-lending/library/internal/search"
)

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	ledger   *ledger.Ledger
	plans    *membership.Registry
	patrons  repository.Repository
	fees     *fee.Calculator
	searcher *search.Searcher
	reviews  *review.Store
}

func NewService(
	ledger *ledger.Ledger,
	plans *membership.Registry,
	patrons repository.Repository,
	fees *fee.Calculator,
	reviews *review.Store,
	clk clock.Clock,
	log *zap.Logger,
) *Service {
	return &Service{
		log:      log.Named("service"),
		clock:    clk,
		ledger:   ledger,
		plans:    plans,
		patrons:  patrons,
		fees:     fees,
		searcher: search.New(ledger),
		reviews:  reviews,
	}
}

func (s *Service) AddBook(_ context.Context, book model.Book) error {
	return s.ledger.Add(book)
}

func (s *Service) RemoveBook(_ context.Context, bookID string) error {
	return s.ledger.Remove(bookID)
}

func (s *Service) GetBook(_ context.Context, bookID string) (model.Book, error) {
	return s.ledger.FindBook(bookID)
}

func (s *Service) ListBooks(_ context.Context, q search.Query) ([]model.Book, error) {
	return s.searcher.Find(q), nil
}

func (s *Service) CheckOut(_ context.Context, bookID, patronID string) (model.Book, error) {
	return s.ledger.CheckOut(bookID, patronID)
}

func (s *Service) CheckIn(_ context.Context, bookID string) (model.Book, error) {
	return s.ledger.CheckIn(bookID)
}

func (s *Service) Reserve(_ context.Context, bookID, patronID string) (model.ReservationRequest, error) {
	return s.ledger.Reserve(bookID, patronID)
}

func (s *Service) CancelReservation(_ context.Context, bookID, patronID string) error {
	return s.ledger.Cancel(bookID, patronID)
}

func (s *Service) ListReservations(_ context.Context, bookID string) ([]model.ReservationRequest, error) {
	return s.ledger.Reservations(bookID)
}

// AddPatron registers a patron on an existing plan.
func (s *Service) AddPatron(_ context.Context, patron model.Patron) error {
	if _, err := s.plans.Plan(patron.Plan); err != nil {
		return err
	}
	return s.patrons.Add(patron)
}

func (s *Service) GetPatron(_ context.Context, patronID string) (model.Patron, error) {
	return s.patrons.Get(patronID)
}

func (s *Service) ListPatrons(_ context.Context) ([]model.Patron, error) {
	return s.patrons.List(), nil
}

func (s *Service) RemovePatron(_ context.Context, patronID string) error {
	return s.ledger.RemovePatron(patronID)
}

func (s *Service) AddPlan(_ context.Context, plan model.MembershipPlan) error {
	return s.plans.Add(plan)
}

func (s *Service) GetPlan(_ context.Context, name string) (model.MembershipPlan, error) {
	return s.plans.Plan(name)
}

func (s *Service) ListPlans(_ context.Context) ([]model.MembershipPlan, error) {
	return s.plans.Plans(), nil
}

// Fee quotes the current overdue fee of the book. A book that is not
// checked out quotes zero.
func (s *Service) Fee(_ context.Context, bookID string) (model.FeeQuote, error) {
	book, err := s.ledger.FindBook(bookID)
	if err != nil {
		return model.FeeQuote{}, err
	}
	var patron model.Patron
	if book.IsCheckedOut() {
		if patron, err = s.patrons.Get(book.Holder); err != nil {
			return model.FeeQuote{}, errors.Wrap(err, "holder")
		}
	}
	return s.fees.Quote(book, patron, s.clock.Now())
}

func (s *Service) OverdueReport(_ context.Context) ([]model.OverdueItem, error) {
	items := slices.Collect(s.fees.Report(s.ledger, s.clock.Now()))
	s.log.Debug("overdue report", zap.Int("items", len(items)))
	return items, nil
}

// AddReview stores a review from a known patron for a catalog book.
func (s *Service) AddReview(_ context.Context, r model.Review) (model.Review, error) {
	if _, err := s.ledger.FindBook(r.BookID); err != nil {
		return model.Review{}, err
	}
	if _, err := s.patrons.Get(r.PatronID); err != nil {
		return model.Review{}, err
	}
	return s.reviews.Add(r)
}

func (s *Service) ListReviews(_ context.Context, bookID string) ([]model.Review, error) {
	if _, err := s.ledger.FindBook(bookID); err != nil {
		return nil, err
	}
	return s.reviews.ForBook(bookID), nil
}
