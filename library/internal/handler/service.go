package handler

import (
	"context"

	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/search"
	"github.com/Astemirdum/library-lending/library/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	AddBook(ctx context.Context, book model.Book) error
	RemoveBook(ctx context.Context, bookID string) error
	GetBook(ctx context.Context, bookID string) (model.Book, error)
	ListBooks(ctx context.Context, q search.Query) ([]model.Book, error)
	CheckOut(ctx context.Context, bookID, patronID string) (model.Book, error)
	CheckIn(ctx context.Context, bookID string) (model.Book, error)
	Reserve(ctx context.Context, bookID, patronID string) (model.ReservationRequest, error)
	CancelReservation(ctx context.Context, bookID, patronID string) error
	ListReservations(ctx context.Context, bookID string) ([]model.ReservationRequest, error)
	AddPatron(ctx context.Context, patron model.Patron) error
	GetPatron(ctx context.Context, patronID string) (model.Patron, error)
	ListPatrons(ctx context.Context) ([]model.Patron, error)
	RemovePatron(ctx context.Context, patronID string) error
	AddPlan(ctx context.Context, plan model.MembershipPlan) error
	GetPlan(ctx context.Context, name string) (model.MembershipPlan, error)
	ListPlans(ctx context.Context) ([]model.MembershipPlan, error)
	Fee(ctx context.Context, bookID string) (model.FeeQuote, error)
	OverdueReport(ctx context.Context) ([]model.OverdueItem, error)
	AddReview(ctx context.Context, r model.Review) (model.Review, error)
	ListReviews(ctx context.Context, bookID string) ([]model.Review, error)
}

var _ LibraryService = (*service.Service)(nil)
