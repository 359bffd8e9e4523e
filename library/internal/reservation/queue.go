// Package reservation keeps per-book FIFO queues of reservation requests.
//
// A Queue is not safe for concurrent use on its own; the ledger calls it
// under its transaction lock.
package reservation

import (
	"sort"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/clock"
	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
)

type Queue struct {
	clock  clock.Clock
	byBook map[string][]*model.ReservationRequest
	log    *zap.Logger
}

func New(clk clock.Clock, log *zap.Logger) *Queue {
	return &Queue{
		clock:  clk,
		byBook: make(map[string][]*model.ReservationRequest),
		log:    log.Named("reservation"),
	}
}

// Reserve enqueues a request stamped with the current instant. Requests
// are kept sorted by CreatedAt; equal timestamps keep insertion order.
func (q *Queue) Reserve(bookID, patronID string) (model.ReservationRequest, error) {
	if _, ok := q.find(bookID, patronID); ok {
		return model.ReservationRequest{}, errors.Wrapf(errs.ErrDuplicateReservation, "book %s patron %s", bookID, patronID)
	}

	req := &model.ReservationRequest{
		ID:        uuid.NewString(),
		BookID:    bookID,
		PatronID:  patronID,
		CreatedAt: q.clock.Now(),
		Active:    true,
	}
	reqs := q.byBook[bookID]
	i := sort.Search(len(reqs), func(i int) bool {
		return reqs[i].CreatedAt.After(req.CreatedAt)
	})
	q.byBook[bookID] = slices.Insert(reqs, i, req)

	q.log.Debug("reserved",
		zap.String("bookID", bookID),
		zap.String("patronID", patronID),
		zap.Int("position", q.position(bookID, req)))
	return *req, nil
}

// Cancel deactivates the active request of the pair.
func (q *Queue) Cancel(bookID, patronID string) error {
	req, ok := q.find(bookID, patronID)
	if !ok {
		return errors.Wrapf(errs.ErrNotFound, "reservation for book %s patron %s", bookID, patronID)
	}
	req.Active = false
	q.prune(bookID)
	return nil
}

// Head returns the oldest active request for the book.
func (q *Queue) Head(bookID string) (model.ReservationRequest, bool) {
	q.prune(bookID)
	reqs := q.byBook[bookID]
	if len(reqs) == 0 {
		return model.ReservationRequest{}, false
	}
	return *reqs[0], true
}

// Promote hands the book to waiting patrons in FIFO order. Each popped
// request is deactivated; a request whose checkout fails is dropped and
// the next one is tried.
func (q *Queue) Promote(bookID string, checkout func(patronID string) error) (model.ReservationRequest, bool) {
	for {
		q.prune(bookID)
		reqs := q.byBook[bookID]
		if len(reqs) == 0 {
			return model.ReservationRequest{}, false
		}
		req := reqs[0]
		req.Active = false
		q.prune(bookID)

		if err := checkout(req.PatronID); err != nil {
			q.log.Info("reservation dropped",
				zap.String("bookID", bookID),
				zap.String("patronID", req.PatronID),
				zap.Error(err))
			continue
		}
		return *req, true
	}
}

// Pending lists active requests for the book in promotion order.
func (q *Queue) Pending(bookID string) []model.ReservationRequest {
	q.prune(bookID)
	reqs := q.byBook[bookID]
	out := make([]model.ReservationRequest, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, *r)
	}
	return out
}

// DropBook deactivates every request for the book.
func (q *Queue) DropBook(bookID string) int {
	n := 0
	for _, r := range q.byBook[bookID] {
		if r.Active {
			r.Active = false
			n++
		}
	}
	delete(q.byBook, bookID)
	return n
}

// DropPatron deactivates every request of the patron and returns the
// affected book ids.
func (q *Queue) DropPatron(patronID string) []string {
	var books []string
	for bookID, reqs := range q.byBook {
		for _, r := range reqs {
			if r.Active && r.PatronID == patronID {
				r.Active = false
				books = append(books, bookID)
			}
		}
		q.prune(bookID)
	}
	sort.Strings(books)
	return books
}

func (q *Queue) find(bookID, patronID string) (*model.ReservationRequest, bool) {
	for _, r := range q.byBook[bookID] {
		if r.Active && r.PatronID == patronID {
			return r, true
		}
	}
	return nil, false
}

func (q *Queue) position(bookID string, req *model.ReservationRequest) int {
	pos := 0
	for _, r := range q.byBook[bookID] {
		if r == req {
			return pos
		}
		if r.Active {
			pos++
		}
	}
	return -1
}

// prune drops inactive requests.
func (q *Queue) prune(bookID string) {
	reqs, ok := q.byBook[bookID]
	if !ok {
		return
	}
	reqs = slices.DeleteFunc(reqs, func(r *model.ReservationRequest) bool { return !r.Active })
	if len(reqs) == 0 {
		delete(q.byBook, bookID)
		return
	}
	q.byBook[bookID] = reqs
}
