package handler

import (
	"net/http"
	"strconv"

	"github.com/IvanGLS/library-service-project/internal/errs"
	"github.com/IvanGLS/library-service-project/internal/model"
	"github.com/IvanGLS/library-service-project/pkg/validate"
	_ "github.com/IvanGLS/library-service-project/swagger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

type Handler struct {
	librarySvc LibraryService
	log        *zap.Logger
}

func New(librarySvc LibraryService, log *zap.Logger) *Handler {
	return &Handler{
		librarySvc: librarySvc,
		log:        log,
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
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(requestLoggerConfig()),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
	)

	api.POST("/books", h.CreateBook)
	api.GET("/books", h.ListBooks)
	api.GET("/books/:id", h.GetBook)
	api.PUT("/books/:id", h.UpdateBook)
	api.DELETE("/books/:id", h.DeleteBook)

	api.POST("/borrowings", h.CreateBorrowing)
	api.GET("/borrowings", h.ListBorrowings)
	api.GET("/borrowings/:id", h.GetBorrowing)
	api.POST("/borrowings/:id/return", h.ReturnBorrowing)

	api.GET("/payments", h.ListPayments)
	api.GET("/payments/:id", h.GetPayment)
	api.POST("/payments/:id/session", h.InitiateSession)

	// gateway callbacks, addressed by session id
	api.GET("/payments/success", h.PaymentSuccess)
	api.GET("/payments/cancel", h.PaymentCancel)
	api.GET("/payments/expired", h.PaymentExpired)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// CreateBook godoc
// @Summary  Add a book to the catalog
// @Tags     books
// @Accept   json
// @Produce  json
// @Param    input body model.CreateBookRequest true "book"
// @Success  201 {object} model.Book
// @Router   /books [post]
func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.librarySvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

// ListBooks godoc
// @Summary  List books, optionally filtered by title
// @Tags     books
// @Produce  json
// @Param    title query string false "case-insensitive title contains"
// @Success  200 {array} model.Book
// @Router   /books [get]
func (h *Handler) ListBooks(c echo.Context) error {
	books, err := h.librarySvc.ListBooks(c.Request().Context(), c.QueryParam("title"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	book, err := h.librarySvc.GetBook(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req model.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.librarySvc.UpdateBook(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.librarySvc.DeleteBook(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateBorrowing godoc
// @Summary  Borrow a book
// @Tags     borrowings
// @Accept   json
// @Produce  json
// @Param    input body model.CreateBorrowingRequest true "borrowing"
// @Success  201 {object} model.Borrowing
// @Router   /borrowings [post]
func (h *Handler) CreateBorrowing(c echo.Context) error {
	var req model.CreateBorrowingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	borrowing, err := h.librarySvc.CreateBorrowing(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, borrowing)
}

// ListBorrowings godoc
// @Summary  List borrowings
// @Tags     borrowings
// @Produce  json
// @Param    user_id   query int    false "filter by borrower"
// @Param    is_active query bool   false "true: open only, false: returned only"
// @Success  200 {array} model.Borrowing
// @Router   /borrowings [get]
func (h *Handler) ListBorrowings(c echo.Context) error {
	var filter model.BorrowingFilter
	if v := c.QueryParam("user_id"); v != "" {
		userID, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		filter.UserID = userID
	}
	if v := c.QueryParam("is_active"); v != "" {
		isActive, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid is_active")
		}
		filter.IsActive = &isActive
	}

	borrowings, err := h.librarySvc.ListBorrowings(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, borrowings)
}

func (h *Handler) GetBorrowing(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	borrowing, err := h.librarySvc.GetBorrowing(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, borrowing)
}

// ReturnBorrowing godoc
// @Summary  Return a borrowed book and initiate the fee payment
// @Tags     borrowings
// @Produce  json
// @Param    id path int true "borrowing id"
// @Success  200 {object} model.ReturnBorrowingResponse
// @Failure  502 {object} model.ReturnBorrowingResponse
// @Router   /borrowings/{id}/return [post]
func (h *Handler) ReturnBorrowing(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	resp, err := h.librarySvc.ReturnBorrowing(c.Request().Context(), id)
	if errors.Is(err, errs.ErrGatewayUnavailable) {
		// the return itself has committed; hand the pending payment back so
		// the caller can retry via POST /payments/:id/session
		resp.Error = err.Error()
		return c.JSON(http.StatusBadGateway, resp)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListPayments(c echo.Context) error {
	payments, err := h.librarySvc.ListPayments(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payments)
}

func (h *Handler) GetPayment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	payment, err := h.librarySvc.GetPayment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// InitiateSession godoc
// @Summary  (Re)create the checkout session for a pending payment
// @Tags     payments
// @Produce  json
// @Param    id path int true "payment id"
// @Success  200 {object} model.Payment
// @Router   /payments/{id}/session [post]
func (h *Handler) InitiateSession(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	payment, err := h.librarySvc.InitiateSession(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

func (h *Handler) PaymentSuccess(c echo.Context) error {
	return h.paymentCallback(c, model.PaymentPaid)
}

func (h *Handler) PaymentCancel(c echo.Context) error {
	return h.paymentCallback(c, model.PaymentCanceled)
}

func (h *Handler) PaymentExpired(c echo.Context) error {
	return h.paymentCallback(c, model.PaymentExpired)
}

func (h *Handler) paymentCallback(c echo.Context, status model.PaymentStatus) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is empty")
	}
	payment, err := h.librarySvc.PaymentCallback(c.Request().Context(), sessionID, status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrInvalidDateRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrBookUnavailable),
		errors.Is(err, errs.ErrPendingPayment),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrLimitReached),
		errors.Is(err, errs.ErrPaymentExists),
		errors.Is(err, errs.ErrPaymentSettled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrGatewayUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
