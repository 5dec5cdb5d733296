package service

import (
	"context"
	"fmt"
	"time"

	"github.com/IvanGLS/library-service-project/config"
	"github.com/IvanGLS/library-service-project/internal/errs"
	"github.com/IvanGLS/library-service-project/internal/fee"
	"github.com/IvanGLS/library-service-project/internal/gateway"
	"github.com/IvanGLS/library-service-project/internal/model"
	"github.com/IvanGLS/library-service-project/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go -package=mocks

// Gateway is the hosted-checkout payment collaborator. It is remote and
// unreliable; failures map to errs.ErrGatewayUnavailable.
type Gateway interface {
	CreateSession(ctx context.Context, amount decimal.Decimal, title, description string) (sessionID, sessionURL string, err error)
	GetStatus(ctx context.Context, sessionID string) (gateway.Status, error)
}

// Notifier is the fire-and-forget message sink. Failures never surface to
// business operations.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Service struct {
	repo     repository.Repository
	gw       Gateway
	notifier Notifier
	calc     fee.Calculator
	log      *zap.Logger

	now func() time.Time
}

func NewService(repo repository.Repository, gw Gateway, notifier Notifier, limits config.Limits, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		gw:       gw,
		notifier: notifier,
		calc:     fee.NewCalculator(limits.FineMultiplier),
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	return s.repo.CreateBook(ctx, req)
}

func (s *Service) ListBooks(ctx context.Context, title string) ([]model.Book, error) {
	return s.repo.ListBooks(ctx, title)
}

func (s *Service) GetBook(ctx context.Context, id int) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error) {
	return s.repo.UpdateBook(ctx, id, req)
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	return s.repo.DeleteBook(ctx, id)
}

// CreateBorrowing validates the date range, then reserves inventory and
// persists the borrowing atomically. The "borrowing created" notification is
// an after-commit effect and never rolls anything back.
func (s *Service) CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest) (model.Borrowing, error) {
	if !req.ExpectedReturnDate.After(req.BorrowDate.Time) {
		return model.Borrowing{}, errs.ErrInvalidDateRange
	}

	borrowing, err := s.repo.CreateBorrowing(ctx, req)
	if err != nil {
		return model.Borrowing{}, err
	}

	book, err := s.repo.GetBook(ctx, borrowing.BookID)
	if err != nil {
		s.log.Warn("CreateBorrowing: get book for notification", zap.Error(err))
		return borrowing, nil
	}
	s.notify(ctx, fmt.Sprintf("New borrowing created: user %d borrowed %s", borrowing.UserID, book.Title))
	return borrowing, nil
}

func (s *Service) ListBorrowings(ctx context.Context, filter model.BorrowingFilter) ([]model.Borrowing, error) {
	return s.repo.ListBorrowings(ctx, filter)
}

func (s *Service) GetBorrowing(ctx context.Context, id int) (model.Borrowing, error) {
	return s.repo.GetBorrowing(ctx, id)
}

// ReturnBorrowing runs the OPEN -> RETURNED transition and creates the
// pending payment in one transaction, then initiates the checkout session.
// A gateway failure leaves the payment PENDING with empty session handles:
// the return has already committed and is not undone.
func (s *Service) ReturnBorrowing(ctx context.Context, id int) (model.ReturnBorrowingResponse, error) {
	returnedAt := model.NewDate(s.now()).Time

	borrowing, payment, err := s.repo.ReturnBorrowing(ctx, id, returnedAt, func(b model.Borrowing, bk model.Book) model.Payment {
		amount, overdue := s.calc.Amount(b.BorrowDate.Time, b.ExpectedReturnDate.Time, returnedAt, bk.DailyFee)
		pType := model.TypePayment
		if overdue {
			pType = model.TypeFine
		}
		return model.Payment{
			PaymentUid:  uuid.NewString(),
			BorrowingID: b.ID,
			Status:      model.PaymentPending,
			Type:        pType,
			MoneyToPay:  amount,
		}
	})
	if err != nil {
		return model.ReturnBorrowingResponse{}, err
	}

	resp := model.ReturnBorrowingResponse{Borrowing: borrowing, Payment: payment}
	payment, err = s.initiateSession(ctx, payment)
	if err != nil {
		return resp, err
	}
	resp.Payment = payment
	return resp, nil
}

// InitiateSession (re)creates the checkout session for a pending payment,
// e.g. after the gateway was down during the return.
func (s *Service) InitiateSession(ctx context.Context, paymentID int) (model.Payment, error) {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return model.Payment{}, err
	}
	if payment.Status != model.PaymentPending {
		return model.Payment{}, errs.ErrPaymentSettled
	}
	return s.initiateSession(ctx, payment)
}

func (s *Service) initiateSession(ctx context.Context, payment model.Payment) (model.Payment, error) {
	borrowing, err := s.repo.GetBorrowing(ctx, payment.BorrowingID)
	if err != nil {
		return payment, err
	}
	book, err := s.repo.GetBook(ctx, borrowing.BookID)
	if err != nil {
		return payment, err
	}

	sessionID, sessionURL, err := s.gw.CreateSession(ctx, payment.MoneyToPay, book.Title, "Book borrowing fee")
	if err != nil {
		s.log.Warn("initiateSession", zap.Int("payment_id", payment.ID), zap.Error(err))
		return payment, err
	}
	if err := s.repo.SetPaymentSession(ctx, payment.ID, sessionID, sessionURL); err != nil {
		return payment, err
	}
	payment.SessionID = sessionID
	payment.SessionURL = sessionURL
	return payment, nil
}

func (s *Service) ListPayments(ctx context.Context) ([]model.Payment, error) {
	return s.repo.ListPayments(ctx)
}

func (s *Service) GetPayment(ctx context.Context, id int) (model.Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

// PaymentCallback reconciles a gateway callback onto the payment addressed
// by its session id. Terminal statuses are applied on the transition edge
// only, so the "successful payment" notification fires at most once.
func (s *Service) PaymentCallback(ctx context.Context, sessionID string, status model.PaymentStatus) (model.Payment, error) {
	if !status.Terminal() {
		return model.Payment{}, errs.ErrPaymentSettled
	}

	// the success callback is a browser redirect, not proof of payment:
	// confirm against the gateway before marking the payment PAID
	if status == model.PaymentPaid {
		st, err := s.gw.GetStatus(ctx, sessionID)
		if err != nil {
			return model.Payment{}, err
		}
		if st != gateway.StatusPaid {
			return s.repo.GetPaymentBySession(ctx, sessionID)
		}
	}

	payment, transitioned, err := s.repo.SettlePayment(ctx, sessionID, status)
	if err != nil {
		return model.Payment{}, err
	}
	if !transitioned || status != model.PaymentPaid {
		return payment, nil
	}

	borrowing, err := s.repo.GetBorrowing(ctx, payment.BorrowingID)
	if err != nil {
		s.log.Warn("PaymentCallback: get borrowing for notification", zap.Error(err))
		return payment, nil
	}
	book, err := s.repo.GetBook(ctx, borrowing.BookID)
	if err != nil {
		s.log.Warn("PaymentCallback: get book for notification", zap.Error(err))
		return payment, nil
	}
	s.notify(ctx, fmt.Sprintf("Successful payment: user %d paid %s for %s", borrowing.UserID, payment.MoneyToPay, book.Title))
	return payment, nil
}

func (s *Service) notify(ctx context.Context, text string) {
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.log.Warn("notify", zap.String("text", text), zap.Error(err))
	}
}
