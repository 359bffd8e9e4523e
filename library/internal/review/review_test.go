package review_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/clock"
	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/review"
)

func TestStore_Add(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := review.NewStore(clock.NewManual(now), zap.NewNop())

	for _, rating := range []int{0, 6, -1} {
		_, err := s.Add(model.Review{BookID: "001", PatronID: "p1", Rating: rating})
		require.ErrorIs(t, err, errs.ErrInvalidRating)
	}

	r, err := s.Add(model.Review{BookID: "001", PatronID: "p1", Rating: 5, Text: "Chilling"})
	require.NoError(t, err)
	require.Equal(t, now, r.CreatedAt)
	_, err = s.Add(model.Review{BookID: "002", PatronID: "p1", Rating: 3})
	require.NoError(t, err)
	_, err = s.Add(model.Review{BookID: "001", PatronID: "p2", Rating: 4, Text: "Still relevant"})
	require.NoError(t, err)

	got := s.ForBook("001")
	require.Len(t, got, 2)
	require.Equal(t, "Rating: 5/5 - Chilling by Alice", got[0].Format("Alice"))
	require.Equal(t, "p2", got[1].PatronID)

	require.Empty(t, s.ForBook("999"))
}
