package handler

import (
	"context"

	"github.com/IvanGLS/library-service-project/internal/model"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go -package=mocks

type LibraryService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	ListBooks(ctx context.Context, title string) ([]model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error

	CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest) (model.Borrowing, error)
	ListBorrowings(ctx context.Context, filter model.BorrowingFilter) ([]model.Borrowing, error)
	GetBorrowing(ctx context.Context, id int) (model.Borrowing, error)
	ReturnBorrowing(ctx context.Context, id int) (model.ReturnBorrowingResponse, error)

	ListPayments(ctx context.Context) ([]model.Payment, error)
	GetPayment(ctx context.Context, id int) (model.Payment, error)
	InitiateSession(ctx context.Context, paymentID int) (model.Payment, error)
	PaymentCallback(ctx context.Context, sessionID string, status model.PaymentStatus) (model.Payment, error)
}
