package review

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/clock"
	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

const (
	minRating = 1
	maxRating = 5
)

type Store struct {
	mu      sync.RWMutex
	reviews []model.Review
	clock   clock.Clock
	log     *zap.Logger
}

func NewStore(clk clock.Clock, log *zap.Logger) *Store {
	return &Store{
		clock: clk,
		log:   log.Named("review"),
	}
}

func (s *Store) Add(r model.Review) (model.Review, error) {
	if r.Rating < minRating || r.Rating > maxRating {
		return model.Review{}, errors.Wrapf(errs.ErrInvalidRating, "got %d", r.Rating)
	}
	r.CreatedAt = s.clock.Now()

	s.mu.Lock()
	s.reviews = append(s.reviews, r)
	s.mu.Unlock()

	s.log.Info("review added", zap.String("bookID", r.BookID), zap.String("patronID", r.PatronID), zap.Int("rating", r.Rating))
	return r, nil
}

// ForBook returns the book's reviews oldest first.
func (s *Store) ForBook(bookID string) []model.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Review, 0)
	for _, r := range s.reviews {
		if r.BookID == bookID {
			out = append(out, r)
		}
	}
	return out
}
