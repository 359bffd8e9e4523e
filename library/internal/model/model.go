package model

import (
	"fmt"
	"slices"
	"time"
)

type BookState string

const (
	StateAvailable  BookState = "AVAILABLE"
	StateCheckedOut BookState = "CHECKED_OUT"
	StateReserved   BookState = "RESERVED"
)

func (s BookState) Label() string {
	switch s {
	case StateCheckedOut:
		return "Checked out"
	case StateReserved:
		return "Reserved"
	default:
		return "Available"
	}
}

// Book is a single catalog entry. DueDate and Holder are set only while
// the book is checked out.
type Book struct {
	ID      string     `json:"id" validate:"required"`
	Title   string     `json:"title" validate:"required"`
	Author  string     `json:"author" validate:"required"`
	ISBN    string     `json:"isbn"`
	Genre   string     `json:"genre,omitempty"`
	State   BookState  `json:"state"`
	DueDate *time.Time `json:"dueDate,omitempty"`
	Holder  string     `json:"holder,omitempty"`
}

func NewBook(id, title, author, isbn string) Book {
	return Book{
		ID:     id,
		Title:  title,
		Author: author,
		ISBN:   isbn,
		State:  StateAvailable,
	}
}

func (b Book) WithGenre(genre string) Book {
	b.Genre = genre
	return b
}

func (b Book) IsCheckedOut() bool {
	return b.State == StateCheckedOut
}

func (b Book) String() string {
	return fmt.Sprintf("%s: %s by %s, ISBN: %s", b.ID, b.Title, b.Author, b.ISBN)
}

// Listing is the catalog line shown for the book.
func (b Book) Listing() string {
	return fmt.Sprintf("%s - %s", b, b.State.Label())
}

type Patron struct {
	ID        string   `json:"id" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	Plan      string   `json:"plan" validate:"required"`
	HeldBooks []string `json:"heldBooks"`
}

func (p Patron) Holds(bookID string) bool {
	return slices.Contains(p.HeldBooks, bookID)
}

func (p Patron) Clone() Patron {
	p.HeldBooks = slices.Clone(p.HeldBooks)
	return p
}

type MembershipPlan struct {
	Name          string  `json:"name" validate:"required"`
	CheckoutLimit uint    `json:"checkoutLimit"`
	DiscountRate  float64 `json:"discountRate" validate:"gte=0,lte=1"`
}

func (p MembershipPlan) String() string {
	return fmt.Sprintf("Plan %s: Checkout Limit - %d, Discount Rate - %g%%", p.Name, p.CheckoutLimit, p.DiscountRate*100)
}

type ReservationRequest struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	PatronID  string    `json:"patronId"`
	CreatedAt time.Time `json:"createdAt"`
	Active    bool      `json:"active"`
}

type EventType string

const (
	EventCheckedOut           EventType = "checked_out"
	EventCheckedIn            EventType = "checked_in"
	EventReservationFulfilled EventType = "reservation_fulfilled"
)

type Event struct {
	ID         string     `json:"id"`
	Seq        uint64     `json:"seq"`
	Type       EventType  `json:"type"`
	BookID     string     `json:"bookId"`
	Title      string     `json:"title"`
	PatronID   string     `json:"patronId"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

type OverdueItem struct {
	Book        Book    `json:"book"`
	Patron      Patron  `json:"patron"`
	OverdueDays int     `json:"overdueDays"`
	Fee         float64 `json:"fee"`
	Display     string  `json:"display"`
}

type FeeQuote struct {
	BookID      string  `json:"bookId"`
	PatronID    string  `json:"patronId,omitempty"`
	OverdueDays int     `json:"overdueDays"`
	Fee         float64 `json:"fee"`
	Display     string  `json:"display"`
}

type Review struct {
	BookID    string    `json:"bookId" validate:"required"`
	PatronID  string    `json:"patronId" validate:"required"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r Review) Format(patronName string) string {
	return fmt.Sprintf("Rating: %d/5 - %s by %s", r.Rating, r.Text, patronName)
}
