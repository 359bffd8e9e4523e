package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/search"
	md "github.com/Astemirdum/library-lending/pkg/middleware"
	"github.com/Astemirdum/library-lending/pkg/validate"
)

type Handler struct {
	librarySvc LibraryService
	log        *zap.Logger
}

func New(librarySvc LibraryService, log *zap.Logger) *Handler {
	return &Handler{
		librarySvc: librarySvc,
		log:        log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPost, http.MethodDelete},
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.POST("/books", h.AddBook)
	api.GET("/books", h.ListBooks)
	api.GET("/books/:bookId", h.GetBook)
	api.DELETE("/books/:bookId", h.RemoveBook)
	api.POST("/books/:bookId/checkout", h.CheckOut)
	api.POST("/books/:bookId/checkin", h.CheckIn)
	api.GET("/books/:bookId/reservations", h.ListReservations)
	api.POST("/books/:bookId/reservations", h.Reserve)
	api.DELETE("/books/:bookId/reservations/:patronId", h.CancelReservation)
	api.GET("/books/:bookId/fee", h.Fee)
	api.GET("/books/:bookId/reviews", h.ListReviews)
	api.POST("/books/:bookId/reviews", h.AddReview)
	api.GET("/overdue", h.OverdueReport)

	api.POST("/patrons", h.AddPatron)
	api.GET("/patrons", h.ListPatrons)
	api.GET("/patrons/:patronId", h.GetPatron)
	api.DELETE("/patrons/:patronId", h.RemovePatron)

	api.GET("/plans", h.ListPlans)
	api.POST("/plans", h.AddPlan)
	api.GET("/plans/:name", h.GetPlan)

	return e
}

// httpError maps domain errors onto status codes.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrDuplicateID),
		errors.Is(err, errs.ErrAlreadyCheckedOut),
		errors.Is(err, errs.ErrNotCheckedOut),
		errors.Is(err, errs.ErrStillCheckedOut),
		errors.Is(err, errs.ErrDuplicateReservation):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrLimitExceeded):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errs.ErrInvalidPlan), errors.Is(err, errs.ErrInvalidRating):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type bookRequest struct {
	ID     string `json:"id" validate:"required"`
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	ISBN   string `json:"isbn"`
	Genre  string `json:"genre"`
}

type bookResponse struct {
	model.Book
	Listing string `json:"listing"`
}

func newBookResponse(b model.Book) bookResponse {
	return bookResponse{Book: b, Listing: b.Listing()}
}

func (h *Handler) AddBook(c echo.Context) error {
	var req bookRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	book := model.NewBook(req.ID, req.Title, req.Author, req.ISBN).WithGenre(req.Genre)
	if err := h.librarySvc.AddBook(c.Request().Context(), book); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, newBookResponse(book))
}

func (h *Handler) ListBooks(c echo.Context) error {
	var q search.Query
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	books, err := h.librarySvc.ListBooks(c.Request().Context(), q)
	if err != nil {
		return httpError(err)
	}
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, newBookResponse(b))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetBook(c echo.Context) error {
	book, err := h.librarySvc.GetBook(c.Request().Context(), c.Param("bookId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newBookResponse(book))
}

func (h *Handler) RemoveBook(c echo.Context) error {
	if err := h.librarySvc.RemoveBook(c.Request().Context(), c.Param("bookId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type patronRequest struct {
	PatronID string `json:"patronId" validate:"required"`
}

func (h *Handler) CheckOut(c echo.Context) error {
	var req patronRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	book, err := h.librarySvc.CheckOut(c.Request().Context(), c.Param("bookId"), req.PatronID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newBookResponse(book))
}

// CheckIn returns the book; when someone was waiting the response shows it
// already lent to them.
func (h *Handler) CheckIn(c echo.Context) error {
	book, err := h.librarySvc.CheckIn(c.Request().Context(), c.Param("bookId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newBookResponse(book))
}

func (h *Handler) Reserve(c echo.Context) error {
	var req patronRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.librarySvc.Reserve(c.Request().Context(), c.Param("bookId"), req.PatronID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) CancelReservation(c echo.Context) error {
	if err := h.librarySvc.CancelReservation(c.Request().Context(), c.Param("bookId"), c.Param("patronId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListReservations(c echo.Context) error {
	rs, err := h.librarySvc.ListReservations(c.Request().Context(), c.Param("bookId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rs)
}

func (h *Handler) Fee(c echo.Context) error {
	quote, err := h.librarySvc.Fee(c.Request().Context(), c.Param("bookId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, quote)
}

func (h *Handler) OverdueReport(c echo.Context) error {
	items, err := h.librarySvc.OverdueReport(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

type reviewRequest struct {
	PatronID string `json:"patronId" validate:"required"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Text     string `json:"text"`
}

type reviewResponse struct {
	model.Review
	Display string `json:"display"`
}

func (h *Handler) AddReview(c echo.Context) error {
	var req reviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	r, err := h.librarySvc.AddReview(ctx, model.Review{
		BookID:   c.Param("bookId"),
		PatronID: req.PatronID,
		Rating:   req.Rating,
		Text:     req.Text,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

// ListReviews renders each review with the reviewer's name, falling back
// to the patron id once the patron is gone.
func (h *Handler) ListReviews(c echo.Context) error {
	ctx := c.Request().Context()
	reviews, err := h.librarySvc.ListReviews(ctx, c.Param("bookId"))
	if err != nil {
		return httpError(err)
	}
	out := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		name := r.PatronID
		if p, err := h.librarySvc.GetPatron(ctx, r.PatronID); err == nil {
			name = p.Name
		}
		out = append(out, reviewResponse{Review: r, Display: r.Format(name)})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) AddPatron(c echo.Context) error {
	var req model.Patron
	if err := bind(c, &req); err != nil {
		return err
	}
	patron := model.Patron{ID: req.ID, Name: req.Name, Plan: req.Plan, HeldBooks: []string{}}
	if err := h.librarySvc.AddPatron(c.Request().Context(), patron); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, patron)
}

func (h *Handler) GetPatron(c echo.Context) error {
	patron, err := h.librarySvc.GetPatron(c.Request().Context(), c.Param("patronId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patron)
}

func (h *Handler) ListPatrons(c echo.Context) error {
	patrons, err := h.librarySvc.ListPatrons(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patrons)
}

func (h *Handler) RemovePatron(c echo.Context) error {
	if err := h.librarySvc.RemovePatron(c.Request().Context(), c.Param("patronId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type planResponse struct {
	model.MembershipPlan
	Details string `json:"details"`
}

func (h *Handler) AddPlan(c echo.Context) error {
	var plan model.MembershipPlan
	if err := bind(c, &plan); err != nil {
		return err
	}
	if err := h.librarySvc.AddPlan(c.Request().Context(), plan); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, planResponse{MembershipPlan: plan, Details: plan.String()})
}

func (h *Handler) GetPlan(c echo.Context) error {
	plan, err := h.librarySvc.GetPlan(c.Request().Context(), c.Param("name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, planResponse{MembershipPlan: plan, Details: plan.String()})
}

func (h *Handler) ListPlans(c echo.Context) error {
	plans, err := h.librarySvc.ListPlans(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse{MembershipPlan: p, Details: p.String()})
	}
	return c.JSON(http.StatusOK, out)
}
