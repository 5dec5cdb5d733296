package model

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type CoverType string

const (
	CoverHard CoverType = "HARD"
	CoverSoft CoverType = "SOFT"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentCanceled PaymentStatus = "CANCELED"
	PaymentExpired  PaymentStatus = "EXPIRED"
)

// Terminal reports whether no further transition is possible.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentCanceled || s == PaymentExpired
}

type PaymentType string

const (
	TypePayment PaymentType = "PAYMENT"
	TypeFine    PaymentType = "FINE"
)

// Date is a calendar date without a time component. JSON format is
// "2006-01-02".
type Date struct {
	time.Time `json:",inline"`
}

func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.Errorf("invalid date %q", s)
	}
	t, err := time.Parse(time.DateOnly, s[1:len(s)-1])
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case nil:
		*d = Date{}
		return nil
	default:
		return errors.Errorf("scan date: unsupported type %T", src)
	}
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

type Book struct {
	ID          int             `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Author      string          `json:"author" db:"author"`
	Cover       CoverType       `json:"cover" db:"cover"`
	TotalCopies int             `json:"totalCopies" db:"total_copies"`
	Inventory   int             `json:"inventory" db:"inventory"`
	DailyFee    decimal.Decimal `json:"dailyFee" db:"daily_fee"`
}

type Borrowing struct {
	ID                 int    `json:"id" db:"id"`
	BorrowingUid       string `json:"borrowingUid" db:"borrowing_uid"`
	BookID             int    `json:"bookId" db:"book_id"`
	UserID             int    `json:"userId" db:"user_id"`
	BorrowDate         Date   `json:"borrowDate" db:"borrow_date"`
	ExpectedReturnDate Date   `json:"expectedReturnDate" db:"expected_return_date"`
	ActualReturnDate   *Date  `json:"actualReturnDate" db:"actual_return_date"`
}

type Payment struct {
	ID          int             `json:"id" db:"id"`
	PaymentUid  string          `json:"paymentUid" db:"payment_uid"`
	BorrowingID int             `json:"borrowingId" db:"borrowing_id"`
	Status      PaymentStatus   `json:"status" db:"status"`
	Type        PaymentType     `json:"type" db:"type"`
	SessionID   string          `json:"sessionId" db:"session_id"`
	SessionURL  string          `json:"sessionUrl" db:"session_url"`
	MoneyToPay  decimal.Decimal `json:"moneyToPay" db:"money_to_pay"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

type CreateBookRequest struct {
	Title       string          `json:"title" validate:"required"`
	Author      string          `json:"author" validate:"required"`
	Cover       CoverType       `json:"cover" validate:"required,oneof=HARD SOFT"`
	TotalCopies int             `json:"totalCopies" validate:"gte=0"`
	DailyFee    decimal.Decimal `json:"dailyFee"`
}

type UpdateBookRequest struct {
	Title    string          `json:"title" validate:"required"`
	Author   string          `json:"author" validate:"required"`
	Cover    CoverType       `json:"cover" validate:"required,oneof=HARD SOFT"`
	DailyFee decimal.Decimal `json:"dailyFee"`
}

type CreateBorrowingRequest struct {
	BookID             int  `json:"bookId" validate:"required"`
	UserID             int  `json:"userId" validate:"required"`
	BorrowDate         Date `json:"borrowDate" validate:"required"`
	ExpectedReturnDate Date `json:"expectedReturnDate" validate:"required"`
}

// BorrowingFilter narrows borrowing listings. IsActive selects open (true)
// or returned (false) borrowings.
type BorrowingFilter struct {
	UserID   int
	IsActive *bool
}

// ReturnBorrowingResponse carries the committed return. Error is set when the
// checkout session could not be created: the payment is PENDING with empty
// session handles and the session can be retried later.
type ReturnBorrowingResponse struct {
	Borrowing Borrowing `json:"borrowing"`
	Payment   Payment   `json:"payment"`
	Error     string    `json:"error,omitempty"`
}

// OverdueBorrowing is a reporting row for the sweep job.
type OverdueBorrowing struct {
	BorrowingUid       string `db:"borrowing_uid"`
	UserID             int    `db:"user_id"`
	BookTitle          string `db:"title"`
	ExpectedReturnDate Date   `db:"expected_return_date"`
}
