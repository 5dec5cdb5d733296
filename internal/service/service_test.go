package service

import (
	"context"
	"testing"
	"time"

	"github.com/IvanGLS/library-service-project/config"
	"github.com/IvanGLS/library-service-project/internal/errs"
	"github.com/IvanGLS/library-service-project/internal/gateway"
	"github.com/IvanGLS/library-service-project/internal/model"
	"github.com/IvanGLS/library-service-project/internal/repository"
	repo_mocks "github.com/IvanGLS/library-service-project/internal/repository/mocks"
	service_mocks "github.com/IvanGLS/library-service-project/internal/service/mocks"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLimits = config.Limits{
	FineMultiplier:       decimal.RequireFromString("5.00"),
	MaxBooks:             1000,
	MaxBorrowingsPerYear: 50000,
}

func date(t *testing.T, s string) model.Date {
	t.Helper()
	tm, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return model.NewDate(tm)
}

func newTestService(t *testing.T) (*Service, *repo_mocks.MockRepository, *service_mocks.MockGateway, *service_mocks.MockNotifier) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	repo := repo_mocks.NewMockRepository(c)
	gw := service_mocks.NewMockGateway(c)
	ntf := service_mocks.NewMockNotifier(c)
	return NewService(repo, gw, ntf, testLimits, zap.NewExample().Named("test")), repo, gw, ntf
}

func TestService_CreateBorrowing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("invalid date range rejected before any state change", func(t *testing.T) {
		t.Parallel()
		svc, _, _, _ := newTestService(t)

		_, err := svc.CreateBorrowing(ctx, model.CreateBorrowingRequest{
			BookID:             1,
			UserID:             1,
			BorrowDate:         date(t, "2022-03-05"),
			ExpectedReturnDate: date(t, "2022-03-05"),
		})
		require.ErrorIs(t, err, errs.ErrInvalidDateRange)
	})

	t.Run("pending payment blocks creation", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, _ := newTestService(t)

		req := model.CreateBorrowingRequest{
			BookID:             1,
			UserID:             7,
			BorrowDate:         date(t, "2022-02-26"),
			ExpectedReturnDate: date(t, "2022-03-05"),
		}
		repo.EXPECT().CreateBorrowing(ctx, req).Return(model.Borrowing{}, errs.ErrPendingPayment)

		_, err := svc.CreateBorrowing(ctx, req)
		require.ErrorIs(t, err, errs.ErrPendingPayment)
	})

	t.Run("out of stock surfaces BookUnavailable", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, _ := newTestService(t)

		req := model.CreateBorrowingRequest{
			BookID:             1,
			UserID:             7,
			BorrowDate:         date(t, "2022-02-26"),
			ExpectedReturnDate: date(t, "2022-03-05"),
		}
		repo.EXPECT().CreateBorrowing(ctx, req).Return(model.Borrowing{}, errs.ErrBookUnavailable)

		_, err := svc.CreateBorrowing(ctx, req)
		require.ErrorIs(t, err, errs.ErrBookUnavailable)
	})

	t.Run("ok notifies best-effort", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, ntf := newTestService(t)

		req := model.CreateBorrowingRequest{
			BookID:             1,
			UserID:             7,
			BorrowDate:         date(t, "2022-02-26"),
			ExpectedReturnDate: date(t, "2022-03-05"),
		}
		borrowing := model.Borrowing{ID: 3, BookID: 1, UserID: 7}
		repo.EXPECT().CreateBorrowing(ctx, req).Return(borrowing, nil)
		repo.EXPECT().GetBook(ctx, 1).Return(model.Book{ID: 1, Title: "Kobzar"}, nil)
		ntf.EXPECT().Notify(ctx, "New borrowing created: user 7 borrowed Kobzar").Return(nil)

		got, err := svc.CreateBorrowing(ctx, req)
		require.NoError(t, err)
		require.Equal(t, borrowing, got)
	})
}

func TestService_ReturnBorrowing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	borrowing := model.Borrowing{
		ID:                 3,
		BookID:             1,
		UserID:             7,
		BorrowDate:         date(t, "2022-02-26"),
		ExpectedReturnDate: date(t, "2022-03-05"),
	}
	book := model.Book{ID: 1, Title: "Kobzar", DailyFee: decimal.RequireFromString("1.00")}

	returnStub := func(repo *repo_mocks.MockRepository) {
		repo.EXPECT().
			ReturnBorrowing(ctx, 3, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ int, _ time.Time, f repository.PaymentFactory) (model.Borrowing, model.Payment, error) {
				p := f(borrowing, book)
				p.ID = 10
				return borrowing, p, nil
			})
	}

	t.Run("on time: base fee, PAYMENT type, session attached", func(t *testing.T) {
		t.Parallel()
		svc, repo, gw, _ := newTestService(t)
		svc.now = func() time.Time { return date(t, "2022-03-05").Time }

		returnStub(repo)
		repo.EXPECT().GetBorrowing(ctx, 3).Return(borrowing, nil)
		repo.EXPECT().GetBook(ctx, 1).Return(book, nil)
		gw.EXPECT().
			CreateSession(ctx, gomock.Any(), "Kobzar", "Book borrowing fee").
			Return("cs_test_1", "https://checkout.test/cs_test_1", nil)
		repo.EXPECT().SetPaymentSession(ctx, 10, "cs_test_1", "https://checkout.test/cs_test_1").Return(nil)

		resp, err := svc.ReturnBorrowing(ctx, 3)
		require.NoError(t, err)
		require.Equal(t, model.TypePayment, resp.Payment.Type)
		require.Equal(t, model.PaymentPending, resp.Payment.Status)
		require.True(t, decimal.RequireFromString("7.00").Equal(resp.Payment.MoneyToPay),
			"got %s", resp.Payment.MoneyToPay)
		require.Equal(t, "cs_test_1", resp.Payment.SessionID)
	})

	t.Run("overdue: fine added, FINE type", func(t *testing.T) {
		t.Parallel()
		svc, repo, gw, _ := newTestService(t)
		svc.now = func() time.Time { return date(t, "2022-03-08").Time }

		returnStub(repo)
		repo.EXPECT().GetBorrowing(ctx, 3).Return(borrowing, nil)
		repo.EXPECT().GetBook(ctx, 1).Return(book, nil)
		gw.EXPECT().
			CreateSession(ctx, gomock.Any(), "Kobzar", "Book borrowing fee").
			Return("cs_test_2", "https://checkout.test/cs_test_2", nil)
		repo.EXPECT().SetPaymentSession(ctx, 10, "cs_test_2", "https://checkout.test/cs_test_2").Return(nil)

		resp, err := svc.ReturnBorrowing(ctx, 3)
		require.NoError(t, err)
		require.Equal(t, model.TypeFine, resp.Payment.Type)
		require.True(t, decimal.RequireFromString("22.00").Equal(resp.Payment.MoneyToPay),
			"got %s", resp.Payment.MoneyToPay)
	})

	t.Run("gateway down: return committed, payment stays pending", func(t *testing.T) {
		t.Parallel()
		svc, repo, gw, _ := newTestService(t)
		svc.now = func() time.Time { return date(t, "2022-03-05").Time }

		returnStub(repo)
		repo.EXPECT().GetBorrowing(ctx, 3).Return(borrowing, nil)
		repo.EXPECT().GetBook(ctx, 1).Return(book, nil)
		gw.EXPECT().
			CreateSession(ctx, gomock.Any(), "Kobzar", "Book borrowing fee").
			Return("", "", errs.ErrGatewayUnavailable)

		resp, err := svc.ReturnBorrowing(ctx, 3)
		require.ErrorIs(t, err, errs.ErrGatewayUnavailable)
		require.Equal(t, borrowing, resp.Borrowing)
		require.Equal(t, model.PaymentPending, resp.Payment.Status)
		require.Empty(t, resp.Payment.SessionID)
	})

	t.Run("second return rejected", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, _ := newTestService(t)
		svc.now = func() time.Time { return date(t, "2022-03-05").Time }

		repo.EXPECT().
			ReturnBorrowing(ctx, 3, gomock.Any(), gomock.Any()).
			Return(model.Borrowing{}, model.Payment{}, errs.ErrAlreadyReturned)

		_, err := svc.ReturnBorrowing(ctx, 3)
		require.ErrorIs(t, err, errs.ErrAlreadyReturned)
	})
}

func TestService_PaymentCallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	payment := model.Payment{
		ID:          10,
		BorrowingID: 3,
		Status:      model.PaymentPaid,
		Type:        model.TypePayment,
		SessionID:   "cs_test_1",
		MoneyToPay:  decimal.RequireFromString("7.00"),
	}

	t.Run("paid transition notifies exactly once", func(t *testing.T) {
		t.Parallel()
		svc, repo, gw, ntf := newTestService(t)

		gw.EXPECT().GetStatus(ctx, "cs_test_1").Return(gateway.StatusPaid, nil)
		repo.EXPECT().SettlePayment(ctx, "cs_test_1", model.PaymentPaid).Return(payment, true, nil)
		repo.EXPECT().GetBorrowing(ctx, 3).Return(model.Borrowing{ID: 3, BookID: 1, UserID: 7}, nil)
		repo.EXPECT().GetBook(ctx, 1).Return(model.Book{ID: 1, Title: "Kobzar"}, nil)
		ntf.EXPECT().Notify(ctx, "Successful payment: user 7 paid 7 for Kobzar").Return(nil).Times(1)

		got, err := svc.PaymentCallback(ctx, "cs_test_1", model.PaymentPaid)
		require.NoError(t, err)
		require.Equal(t, payment, got)
	})

	t.Run("repeated paid callback: no transition, zero notifications", func(t *testing.T) {
		t.Parallel()
		svc, repo, gw, _ := newTestService(t)

		gw.EXPECT().GetStatus(ctx, "cs_test_1").Return(gateway.StatusPaid, nil)
		repo.EXPECT().SettlePayment(ctx, "cs_test_1", model.PaymentPaid).Return(payment, false, nil)

		got, err := svc.PaymentCallback(ctx, "cs_test_1", model.PaymentPaid)
		require.NoError(t, err)
		require.Equal(t, payment, got)
	})

	t.Run("unconfirmed success redirect leaves payment pending", func(t *testing.T) {
		t.Parallel()
		svc, repo, gw, _ := newTestService(t)

		pending := payment
		pending.Status = model.PaymentPending
		gw.EXPECT().GetStatus(ctx, "cs_test_1").Return(gateway.StatusPending, nil)
		repo.EXPECT().GetPaymentBySession(ctx, "cs_test_1").Return(pending, nil)

		got, err := svc.PaymentCallback(ctx, "cs_test_1", model.PaymentPaid)
		require.NoError(t, err)
		require.Equal(t, model.PaymentPending, got.Status)
	})

	t.Run("gateway down during confirmation: nothing settled", func(t *testing.T) {
		t.Parallel()
		svc, _, gw, _ := newTestService(t)

		gw.EXPECT().GetStatus(ctx, "cs_test_1").Return(gateway.Status(""), errs.ErrGatewayUnavailable)

		_, err := svc.PaymentCallback(ctx, "cs_test_1", model.PaymentPaid)
		require.ErrorIs(t, err, errs.ErrGatewayUnavailable)
	})

	t.Run("canceled transition does not notify", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, _ := newTestService(t)

		canceled := payment
		canceled.Status = model.PaymentCanceled
		repo.EXPECT().SettlePayment(ctx, "cs_test_1", model.PaymentCanceled).Return(canceled, true, nil)

		got, err := svc.PaymentCallback(ctx, "cs_test_1", model.PaymentCanceled)
		require.NoError(t, err)
		require.Equal(t, canceled, got)
	})

	t.Run("conflicting terminal status rejected", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, _ := newTestService(t)

		repo.EXPECT().SettlePayment(ctx, "cs_test_1", model.PaymentCanceled).
			Return(model.Payment{}, false, errs.ErrPaymentSettled)

		_, err := svc.PaymentCallback(ctx, "cs_test_1", model.PaymentCanceled)
		require.ErrorIs(t, err, errs.ErrPaymentSettled)
	})

	t.Run("non-terminal status rejected", func(t *testing.T) {
		t.Parallel()
		svc, _, _, _ := newTestService(t)

		_, err := svc.PaymentCallback(ctx, "cs_test_1", model.PaymentPending)
		require.ErrorIs(t, err, errs.ErrPaymentSettled)
	})
}

func TestService_InitiateSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("settled payment rejected", func(t *testing.T) {
		t.Parallel()
		svc, repo, _, _ := newTestService(t)

		repo.EXPECT().GetPayment(ctx, 10).Return(model.Payment{ID: 10, Status: model.PaymentPaid}, nil)

		_, err := svc.InitiateSession(ctx, 10)
		require.ErrorIs(t, err, errs.ErrPaymentSettled)
	})

	t.Run("pending payment gets a session", func(t *testing.T) {
		t.Parallel()
		svc, repo, gw, _ := newTestService(t)

		pending := model.Payment{ID: 10, BorrowingID: 3, Status: model.PaymentPending, MoneyToPay: decimal.RequireFromString("7.00")}
		repo.EXPECT().GetPayment(ctx, 10).Return(pending, nil)
		repo.EXPECT().GetBorrowing(ctx, 3).Return(model.Borrowing{ID: 3, BookID: 1}, nil)
		repo.EXPECT().GetBook(ctx, 1).Return(model.Book{ID: 1, Title: "Kobzar"}, nil)
		gw.EXPECT().
			CreateSession(ctx, gomock.Any(), "Kobzar", "Book borrowing fee").
			Return("cs_test_3", "https://checkout.test/cs_test_3", nil)
		repo.EXPECT().SetPaymentSession(ctx, 10, "cs_test_3", "https://checkout.test/cs_test_3").Return(nil)

		payment, err := svc.InitiateSession(ctx, 10)
		require.NoError(t, err)
		require.Equal(t, "cs_test_3", payment.SessionID)
	})
}
