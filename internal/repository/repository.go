package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/IvanGLS/library-service-project/config"
	"github.com/IvanGLS/library-service-project/internal/errs"
	"github.com/IvanGLS/library-service-project/internal/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:generate mockgen -source=repository.go -destination=mocks/mock.go -package=mocks

type Repository interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	ListBooks(ctx context.Context, title string) ([]model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error

	CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest) (model.Borrowing, error)
	ListBorrowings(ctx context.Context, filter model.BorrowingFilter) ([]model.Borrowing, error)
	GetBorrowing(ctx context.Context, id int) (model.Borrowing, error)
	ReturnBorrowing(ctx context.Context, id int, returnedAt time.Time, newPayment PaymentFactory) (model.Borrowing, model.Payment, error)
	ListOverdue(ctx context.Context, today time.Time) ([]model.OverdueBorrowing, error)

	ListPayments(ctx context.Context) ([]model.Payment, error)
	GetPayment(ctx context.Context, id int) (model.Payment, error)
	GetPaymentBySession(ctx context.Context, sessionID string) (model.Payment, error)
	SetPaymentSession(ctx context.Context, id int, sessionID, sessionURL string) error
	SettlePayment(ctx context.Context, sessionID string, status model.PaymentStatus) (model.Payment, bool, error)
	ExpireStalePayments(ctx context.Context, cutoff time.Time) ([]model.Payment, error)
}

// PaymentFactory builds the pending payment for a just-returned borrowing.
// It runs inside the return transaction and must be pure.
type PaymentFactory func(b model.Borrowing, bk model.Book) model.Payment

type repository struct {
	db     *sqlx.DB
	limits config.Limits
	log    *zap.Logger
}

func NewRepository(db *sqlx.DB, limits config.Limits, log *zap.Logger) (*repository, error) {
	return &repository{
		db:     db,
		limits: limits,
		log:    log.Named("repo"),
	}, nil
}

const (
	booksTableName      = `books`
	borrowingsTableName = `borrowings`
	paymentsTableName   = `payments`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	bookColumns      = []string{"id", "title", "author", "cover", "total_copies", "inventory", "daily_fee"}
	borrowingColumns = []string{"id", "borrowing_uid", "book_id", "user_id", "borrow_date", "expected_return_date", "actual_return_date"}
	paymentColumns   = []string{"id", "payment_uid", "borrowing_id", "status", "type", "session_id", "session_url", "money_to_pay", "created_at"}
)

func (r *repository) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Book{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var count int
	if err := tx.QueryRowContext(ctx, `select count(*) from books`).Scan(&count); err != nil {
		return model.Book{}, err
	}
	if count >= r.limits.MaxBooks {
		return model.Book{}, errors.Wrap(errs.ErrLimitReached, "maximum number of books reached")
	}

	q, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "cover", "total_copies", "inventory", "daily_fee").
		Values(req.Title, req.Author, req.Cover, req.TotalCopies, req.TotalCopies, req.DailyFee).
		Suffix("returning " + joinColumns(bookColumns)).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := tx.GetContext(ctx, &book, q, args...); err != nil {
		r.log.Error("CreateBook", zap.String("q", q), zap.Any("args", args))
		return model.Book{}, err
	}
	return book, tx.Commit()
}

func (r *repository) ListBooks(ctx context.Context, title string) ([]model.Book, error) {
	b := qb.Select(bookColumns...).
		From(booksTableName).
		OrderBy("id")
	if title != "" {
		b = b.Where(sq.ILike{"title": "%" + title + "%"})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, q, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) GetBook(ctx context.Context, id int) (model.Book, error) {
	q, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error) {
	q, args, err := qb.Update(booksTableName).
		Set("title", req.Title).
		Set("author", req.Author).
		Set("cover", req.Cover).
		Set("daily_fee", req.DailyFee).
		Where(sq.Eq{"id": id}).
		Suffix("returning " + joinColumns(bookColumns)).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, id int) error {
	q, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreateBorrowing reserves one inventory unit and persists the borrowing in
// a single transaction. The borrower must not hold a pending payment.
func (r *repository) CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest) (model.Borrowing, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Borrowing{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var yearCount int
	q := `select count(*) from borrowings where date_part('year', borrow_date) = date_part('year', $1::date)`
	if err := tx.QueryRowContext(ctx, q, req.BorrowDate.Time).Scan(&yearCount); err != nil {
		return model.Borrowing{}, err
	}
	if yearCount >= r.limits.MaxBorrowingsPerYear {
		return model.Borrowing{}, errors.Wrap(errs.ErrLimitReached, "maximum number of borrowings reached for this year")
	}

	var pending bool
	q = `
	select exists (
		select 1 from payments p
		join borrowings b on b.id = p.borrowing_id
		where b.user_id = $1 and p.status = 'PENDING'
	)`
	if err := tx.QueryRowContext(ctx, q, req.UserID).Scan(&pending); err != nil {
		return model.Borrowing{}, err
	}
	if pending {
		return model.Borrowing{}, errs.ErrPendingPayment
	}

	// reserve: never below zero, no row means out of stock or no such book
	q = `update books set inventory = inventory - 1 where id = $1 and inventory > 0 returning id`
	var bookID int
	if err := tx.QueryRowContext(ctx, q, req.BookID).Scan(&bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.QueryRowContext(ctx, `select exists (select 1 from books where id = $1)`, req.BookID).Scan(&exists); err != nil {
				return model.Borrowing{}, err
			}
			if !exists {
				return model.Borrowing{}, errs.ErrNotFound
			}
			return model.Borrowing{}, errs.ErrBookUnavailable
		}
		return model.Borrowing{}, err
	}

	iq, args, err := qb.Insert(borrowingsTableName).
		Columns("borrowing_uid", "book_id", "user_id", "borrow_date", "expected_return_date").
		Values(uuid.New(), req.BookID, req.UserID, req.BorrowDate, req.ExpectedReturnDate).
		Suffix("returning " + joinColumns(borrowingColumns)).
		ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}
	var borrowing model.Borrowing
	if err := tx.GetContext(ctx, &borrowing, iq, args...); err != nil {
		r.log.Error("CreateBorrowing", zap.String("q", iq), zap.Any("args", args))
		return model.Borrowing{}, err
	}
	return borrowing, tx.Commit()
}

func (r *repository) ListBorrowings(ctx context.Context, filter model.BorrowingFilter) ([]model.Borrowing, error) {
	b := qb.Select(borrowingColumns...).
		From(borrowingsTableName).
		OrderBy("id")
	if filter.UserID != 0 {
		b = b.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.IsActive != nil {
		if *filter.IsActive {
			b = b.Where("actual_return_date is null")
		} else {
			b = b.Where("actual_return_date is not null")
		}
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var borrowings []model.Borrowing
	if err := r.db.SelectContext(ctx, &borrowings, q, args...); err != nil {
		return nil, err
	}
	return borrowings, nil
}

func (r *repository) GetBorrowing(ctx context.Context, id int) (model.Borrowing, error) {
	q, args, err := qb.Select(borrowingColumns...).
		From(borrowingsTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}
	var borrowing model.Borrowing
	if err := r.db.GetContext(ctx, &borrowing, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Borrowing{}, errs.ErrNotFound
		}
		return model.Borrowing{}, err
	}
	return borrowing, nil
}

// ReturnBorrowing performs the one-way OPEN -> RETURNED transition: sets the
// actual return date, releases one inventory unit capped at total copies and
// inserts the pending payment built by newPayment, all in one transaction.
func (r *repository) ReturnBorrowing(ctx context.Context, id int, returnedAt time.Time, newPayment PaymentFactory) (model.Borrowing, model.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Borrowing{}, model.Payment{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	q := `
	update borrowings set actual_return_date = $2
	where id = $1 and actual_return_date is null
	returning ` + joinColumns(borrowingColumns)
	var borrowing model.Borrowing
	if err := tx.GetContext(ctx, &borrowing, q, id, returnedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.QueryRowContext(ctx, `select exists (select 1 from borrowings where id = $1)`, id).Scan(&exists); err != nil {
				return model.Borrowing{}, model.Payment{}, err
			}
			if !exists {
				return model.Borrowing{}, model.Payment{}, errs.ErrNotFound
			}
			return model.Borrowing{}, model.Payment{}, errs.ErrAlreadyReturned
		}
		return model.Borrowing{}, model.Payment{}, err
	}

	q = `
	update books set inventory = least(inventory + 1, total_copies)
	where id = $1
	returning ` + joinColumns(bookColumns)
	var book model.Book
	if err := tx.GetContext(ctx, &book, q, borrowing.BookID); err != nil {
		return model.Borrowing{}, model.Payment{}, err
	}

	p := newPayment(borrowing, book)
	iq, args, err := qb.Insert(paymentsTableName).
		Columns("payment_uid", "borrowing_id", "status", "type", "money_to_pay").
		Values(p.PaymentUid, p.BorrowingID, p.Status, p.Type, p.MoneyToPay).
		Suffix("returning " + joinColumns(paymentColumns)).
		ToSql()
	if err != nil {
		return model.Borrowing{}, model.Payment{}, err
	}
	var payment model.Payment
	if err := tx.GetContext(ctx, &payment, iq, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Borrowing{}, model.Payment{}, errs.ErrPaymentExists
		}
		r.log.Error("ReturnBorrowing insert payment", zap.String("q", iq), zap.Any("args", args))
		return model.Borrowing{}, model.Payment{}, err
	}
	return borrowing, payment, tx.Commit()
}

func (r *repository) ListOverdue(ctx context.Context, today time.Time) ([]model.OverdueBorrowing, error) {
	q := `
	select b.borrowing_uid, b.user_id, bk.title, b.expected_return_date
	from borrowings b
	join books bk on bk.id = b.book_id
	where b.actual_return_date is null and b.expected_return_date < $1::date
	order by b.expected_return_date`
	var items []model.OverdueBorrowing
	if err := r.db.SelectContext(ctx, &items, q, today); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListPayments(ctx context.Context) ([]model.Payment, error) {
	q, args, err := qb.Select(paymentColumns...).
		From(paymentsTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var payments []model.Payment
	if err := r.db.SelectContext(ctx, &payments, q, args...); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) GetPayment(ctx context.Context, id int) (model.Payment, error) {
	q, args, err := qb.Select(paymentColumns...).
		From(paymentsTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Payment{}, err
	}
	var payment model.Payment
	if err := r.db.GetContext(ctx, &payment, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payment{}, errs.ErrNotFound
		}
		return model.Payment{}, err
	}
	return payment, nil
}

func (r *repository) GetPaymentBySession(ctx context.Context, sessionID string) (model.Payment, error) {
	q, args, err := qb.Select(paymentColumns...).
		From(paymentsTableName).
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return model.Payment{}, err
	}
	var payment model.Payment
	if err := r.db.GetContext(ctx, &payment, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payment{}, errs.ErrNotFound
		}
		return model.Payment{}, err
	}
	return payment, nil
}

func (r *repository) SetPaymentSession(ctx context.Context, id int, sessionID, sessionURL string) error {
	q := `update payments set session_id = $2, session_url = $3 where id = $1 and status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, id, sessionID, sessionURL)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrPaymentSettled
	}
	return nil
}

// SettlePayment applies a terminal status on the PENDING -> terminal edge
// only. The bool result reports whether a transition actually happened:
// re-applying the same terminal status is a no-op, a conflicting terminal
// status is ErrPaymentSettled.
func (r *repository) SettlePayment(ctx context.Context, sessionID string, status model.PaymentStatus) (model.Payment, bool, error) {
	q := `
	update payments set status = $2
	where session_id = $1 and status = 'PENDING'
	returning ` + joinColumns(paymentColumns)
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, q, sessionID, status)
	if err == nil {
		return payment, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, false, err
	}

	payment, err = r.GetPaymentBySession(ctx, sessionID)
	if err != nil {
		return model.Payment{}, false, err
	}
	if payment.Status == status {
		return payment, false, nil
	}
	return model.Payment{}, false, errs.ErrPaymentSettled
}

// ExpireStalePayments expires pending payments whose checkout session is
// older than cutoff. A payment that never got a session is skipped: there is
// nothing on the gateway side to outlive, and the session can still be
// created through the retry endpoint.
func (r *repository) ExpireStalePayments(ctx context.Context, cutoff time.Time) ([]model.Payment, error) {
	q, args, err := expireStaleQuery(cutoff)
	if err != nil {
		return nil, err
	}
	var payments []model.Payment
	if err := r.db.SelectContext(ctx, &payments, q, args...); err != nil {
		return nil, err
	}
	return payments, nil
}

func expireStaleQuery(cutoff time.Time) (string, []interface{}, error) {
	return qb.Update(paymentsTableName).
		Set("status", model.PaymentExpired).
		Where(sq.Eq{"status": model.PaymentPending}).
		Where(sq.NotEq{"session_id": ""}).
		Where(sq.Lt{"created_at": cutoff}).
		Suffix("returning " + joinColumns(paymentColumns)).
		ToSql()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
