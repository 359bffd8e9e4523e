// Package ledger is the authoritative store of catalog entries and their
// lending state.
//
// Every state transition runs under a single mutex that also covers the
// patrons' held sets and the reservation queue, so a check-in and the
// promotion it triggers are one transaction. Events produced by a
// transition are handed to the EventSink after the lock is released, so
// events of concurrent transactions may reach the sink interleaved; Seq
// is assigned under the lock and gives the commit order.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/clock"
	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/repository"
	"github.com/Astemirdum/library-lending/library/internal/reservation"
)

const DefaultLoanPeriod = 14 * 24 * time.Hour

type PlanLookup interface {
	Plan(name string) (model.MembershipPlan, error)
}

type EventSink interface {
	Emit(e model.Event)
}

type nopSink struct{}

func (nopSink) Emit(model.Event) {}

type Ledger struct {
	mu         sync.Mutex
	books      map[string]*model.Book
	patrons    repository.Repository
	plans      PlanLookup
	queue      *reservation.Queue
	clock      clock.Clock
	loanPeriod time.Duration
	sink       EventSink
	seq        uint64
	log        *zap.Logger
}

type Option func(*Ledger)

func WithLoanPeriod(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.loanPeriod = d
		}
	}
}

func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) {
		if sink != nil {
			l.sink = sink
		}
	}
}

func New(
	patrons repository.Repository,
	plans PlanLookup,
	queue *reservation.Queue,
	clk clock.Clock,
	log *zap.Logger,
	opts ...Option,
) *Ledger {
	l := &Ledger{
		books:      make(map[string]*model.Book),
		patrons:    patrons,
		plans:      plans,
		queue:      queue,
		clock:      clk,
		loanPeriod: DefaultLoanPeriod,
		sink:       nopSink{},
		log:        log.Named("ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// batch collects the events of one transaction.
type batch []model.Event

func (l *Ledger) flush(events batch) {
	for _, e := range events {
		l.sink.Emit(e)
	}
}

func (l *Ledger) event(t model.EventType, b *model.Book, patronID string) model.Event {
	l.seq++
	e := model.Event{
		ID:         uuid.NewString(),
		Seq:        l.seq,
		Type:       t,
		BookID:     b.ID,
		Title:      b.Title,
		PatronID:   patronID,
		OccurredAt: l.clock.Now(),
	}
	if b.DueDate != nil {
		due := *b.DueDate
		e.DueDate = &due
	}
	return e
}

func (l *Ledger) Add(book model.Book) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.books[book.ID]; ok {
		return errors.Wrapf(errs.ErrDuplicateID, "book %s", book.ID)
	}
	book.State = model.StateAvailable
	book.DueDate = nil
	book.Holder = ""
	l.books[book.ID] = &book
	l.log.Info("book added", zap.String("bookID", book.ID), zap.String("title", book.Title))
	return nil
}

// Remove deletes the book from the catalog. A checked-out book cannot be
// removed; pending reservations for it are dropped.
func (l *Ledger) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.books[id]
	if !ok {
		return errors.Wrapf(errs.ErrNotFound, "book %s", id)
	}
	if b.State == model.StateCheckedOut {
		return errors.Wrapf(errs.ErrStillCheckedOut, "book %s is held by %s", id, b.Holder)
	}
	dropped := l.queue.DropBook(id)
	delete(l.books, id)
	l.log.Info("book removed", zap.String("bookID", id), zap.Int("droppedReservations", dropped))
	return nil
}

func (l *Ledger) FindBook(id string) (model.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.books[id]
	if !ok {
		return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %s", id)
	}
	return copyBook(b), nil
}

func (l *Ledger) FindPatron(id string) (model.Patron, error) {
	return l.patrons.Get(id)
}

// Books returns a snapshot of the catalog ordered by id.
func (l *Ledger) Books() []model.Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot(func(*model.Book) bool { return true })
}

func (l *Ledger) CheckedOut() []model.Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot(func(b *model.Book) bool { return b.State == model.StateCheckedOut })
}

func (l *Ledger) snapshot(keep func(*model.Book) bool) []model.Book {
	out := make([]model.Book, 0, len(l.books))
	for _, b := range l.books {
		if keep(b) {
			out = append(out, copyBook(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CheckOut lends an available book to the patron.
func (l *Ledger) CheckOut(bookID, patronID string) (model.Book, error) {
	var events batch
	l.mu.Lock()
	b, err := l.checkOut(&events, bookID, patronID)
	l.mu.Unlock()
	l.flush(events)
	return b, err
}

func (l *Ledger) checkOut(events *batch, bookID, patronID string) (model.Book, error) {
	b, ok := l.books[bookID]
	if !ok {
		return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %s", bookID)
	}
	patron, err := l.patrons.Get(patronID)
	if err != nil {
		return model.Book{}, err
	}

	if b.State != model.StateAvailable {
		return model.Book{}, errors.Wrapf(errs.ErrAlreadyCheckedOut, "book %s", bookID)
	}
	if err := l.lend(events, b, patron); err != nil {
		return model.Book{}, err
	}
	return copyBook(b), nil
}

// lend applies the AVAILABLE -> CHECKED_OUT transition after the plan
// limit check.
func (l *Ledger) lend(events *batch, b *model.Book, patron model.Patron) error {
	plan, err := l.plans.Plan(patron.Plan)
	if err != nil {
		return err
	}
	if uint(len(patron.HeldBooks)) >= plan.CheckoutLimit {
		return errors.Wrapf(errs.ErrLimitExceeded, "patron %s holds %d of %d", patron.ID, len(patron.HeldBooks), plan.CheckoutLimit)
	}
	if err := l.patrons.Hold(patron.ID, b.ID); err != nil {
		return err
	}

	due := l.clock.Now().Add(l.loanPeriod)
	b.State = model.StateCheckedOut
	b.DueDate = &due
	b.Holder = patron.ID
	*events = append(*events, l.event(model.EventCheckedOut, b, patron.ID))

	l.log.Info("book checked out",
		zap.String("bookID", b.ID),
		zap.String("patronID", patron.ID),
		zap.Time("dueDate", due))
	return nil
}

// CheckIn returns the book and promotes the next waiting reservation, if
// any. The returned book reflects the state after promotion.
func (l *Ledger) CheckIn(bookID string) (model.Book, error) {
	var events batch
	l.mu.Lock()
	b, err := l.checkIn(&events, bookID)
	l.mu.Unlock()
	l.flush(events)
	return b, err
}

func (l *Ledger) checkIn(events *batch, bookID string) (model.Book, error) {
	b, ok := l.books[bookID]
	if !ok {
		return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %s", bookID)
	}
	if b.State != model.StateCheckedOut {
		return model.Book{}, errors.Wrapf(errs.ErrNotCheckedOut, "book %s", bookID)
	}

	holder := b.Holder
	if err := l.patrons.Release(holder, bookID); err != nil {
		// the holder was removed out of band; the book still comes back
		l.log.Warn("release held book", zap.String("bookID", bookID), zap.String("patronID", holder), zap.Error(err))
	}
	returned := l.event(model.EventCheckedIn, b, holder)
	b.State = model.StateAvailable
	b.DueDate = nil
	b.Holder = ""
	*events = append(*events, returned)
	l.log.Info("book checked in", zap.String("bookID", bookID), zap.String("patronID", holder))

	if _, err := l.promote(events, b); err != nil {
		l.log.Info("book back on shelf", zap.String("bookID", bookID), zap.Error(err))
	}
	return copyBook(b), nil
}

// promote lends the book to the first waiting patron who can take it.
// When nobody could, the error of the last failed attempt is returned.
func (l *Ledger) promote(events *batch, b *model.Book) (model.ReservationRequest, error) {
	var lastErr error
	req, ok := l.queue.Promote(b.ID, func(patronID string) error {
		patron, err := l.patrons.Get(patronID)
		if err == nil {
			err = l.lend(events, b, patron)
		}
		if err != nil {
			lastErr = err
		}
		return err
	})
	if !ok {
		return model.ReservationRequest{}, lastErr
	}
	*events = append(*events, l.event(model.EventReservationFulfilled, b, req.PatronID))
	l.log.Info("reservation fulfilled", zap.String("bookID", b.ID), zap.String("patronID", req.PatronID))
	return req, nil
}

// Reserve queues the patron for the book. A book on the shelf is lent to
// the patron right away and the returned request is already fulfilled;
// if the patron cannot take it the request is dropped and the lending
// error returned. The current holder cannot reserve their own book.
func (l *Ledger) Reserve(bookID, patronID string) (model.ReservationRequest, error) {
	var events batch
	l.mu.Lock()
	req, err := l.reserve(&events, bookID, patronID)
	l.mu.Unlock()
	l.flush(events)
	return req, err
}

func (l *Ledger) reserve(events *batch, bookID, patronID string) (model.ReservationRequest, error) {
	b, ok := l.books[bookID]
	if !ok {
		return model.ReservationRequest{}, errors.Wrapf(errs.ErrNotFound, "book %s", bookID)
	}
	if _, err := l.patrons.Get(patronID); err != nil {
		return model.ReservationRequest{}, err
	}
	if b.Holder == patronID {
		return model.ReservationRequest{}, errors.Wrapf(errs.ErrAlreadyCheckedOut, "book %s is held by %s", bookID, patronID)
	}
	req, err := l.queue.Reserve(bookID, patronID)
	if err != nil {
		return model.ReservationRequest{}, err
	}
	if b.State != model.StateAvailable {
		l.log.Info("book reserved", zap.String("bookID", bookID), zap.String("patronID", patronID))
		return req, nil
	}
	return l.promote(events, b)
}

// Cancel deactivates the patron's reservation.
func (l *Ledger) Cancel(bookID, patronID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Cancel(bookID, patronID)
}

func (l *Ledger) Reservations(bookID string) ([]model.ReservationRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.books[bookID]; !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "book %s", bookID)
	}
	return l.queue.Pending(bookID), nil
}

// RemovePatron deletes a patron who holds no books and withdraws their
// reservations.
func (l *Ledger) RemovePatron(patronID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	patron, err := l.patrons.Get(patronID)
	if err != nil {
		return err
	}
	if len(patron.HeldBooks) > 0 {
		return errors.Wrapf(errs.ErrStillCheckedOut, "patron %s holds %d books", patronID, len(patron.HeldBooks))
	}
	if dropped := l.queue.DropPatron(patronID); len(dropped) > 0 {
		l.log.Info("reservations withdrawn", zap.String("patronID", patronID), zap.Strings("bookIDs", dropped))
	}
	return l.patrons.Delete(patronID)
}

func copyBook(b *model.Book) model.Book {
	out := *b
	if b.DueDate != nil {
		due := *b.DueDate
		out.DueDate = &due
	}
	return out
}
